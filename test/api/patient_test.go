package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patientBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":            name,
		"gender":          "Male",
		"age":             58,
		"phone":           "555-0100",
		"timeInHospital":  4,
		"emergencyVisits": 1,
		"hba1c":           "Abnormal",
		"glucose":         "Normal",
		"diabetesMed":     "Yes",
	}
}

func createPatient(t *testing.T) string {
	t.Helper()
	resp := makeRequest(http.MethodPost, "/patients", patientBody(uniqueName("API Patient")))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Message)
	id := resp.GetString("id")
	require.NotEmpty(t, id)
	t.Cleanup(func() { makeRequest(http.MethodDelete, "/patients/"+id, nil) })
	return id
}

func TestPatientFlow(t *testing.T) {
	name := uniqueName("Flow Patient")

	createResp := makeRequest(http.MethodPost, "/patients", patientBody(name))
	require.Equal(t, http.StatusCreated, createResp.Code, createResp.Message)
	assert.True(t, createResp.IsSuccess())
	assert.Equal(t, true, createResp.Data["isEligible"])
	patientID := createResp.GetString("id")

	getResp := makeRequest(http.MethodGet, fmt.Sprintf("/patients/%s", patientID), nil)
	assert.True(t, getResp.IsSuccess())
	assert.Equal(t, name, getResp.Data["name"])

	updateResp := makeRequest(http.MethodPut, "/patients/"+patientID, map[string]interface{}{"emergencyVisits": 5})
	require.Equal(t, http.StatusOK, updateResp.Code, updateResp.Message)
	assert.Equal(t, false, updateResp.Data["isEligible"])
	assert.Equal(t, "Too many emergency visits (more than 3)", updateResp.Data["eliminationReason"])

	searchResp := makeRequest(http.MethodGet, "/patients?search=flow%20patient", nil)
	assert.True(t, searchResp.IsSuccess())
	assert.NotEmpty(t, searchResp.List)

	derived := makeRequest(http.MethodPut, "/patients/"+patientID, map[string]interface{}{"isEligible": true})
	assert.Equal(t, http.StatusBadRequest, derived.Code)

	dashResp := makeRequest(http.MethodGet, "/patients/stats/dashboard", nil)
	assert.True(t, dashResp.IsSuccess())
	assert.Contains(t, dashResp.Data, "totalPatients")

	deleteResp := makeRequest(http.MethodDelete, "/patients/"+patientID, nil)
	assert.Equal(t, http.StatusOK, deleteResp.Code)

	missing := makeRequest(http.MethodGet, "/patients/"+patientID, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestEvaluateDoesNotPersist(t *testing.T) {
	body := patientBody(uniqueName("Dry Run"))
	body["diabetesMed"] = "No"

	resp := makeRequest(http.MethodPost, "/patients/evaluate", body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Message)
	assert.Equal(t, false, resp.Data["isEligible"])
	assert.Equal(t, "Not on diabetes medication", resp.Data["eliminationReason"])
}
