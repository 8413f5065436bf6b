package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgeGroups(t *testing.T) {
	groups := AgeGroups(map[int]int{
		12:  1,
		29:  2,
		30:  1,
		65:  4,
		100: 1,
		104: 2,
	})

	assert.Equal(t, []AgeGroup{
		{ID: 0, Count: 3},
		{ID: 30, Count: 1},
		{ID: 50, Count: 4},
		{ID: "100+", Count: 3},
	}, groups)
}

func TestAgeGroupsEmpty(t *testing.T) {
	groups := AgeGroups(nil)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
