package api_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpLifecycle(t *testing.T) {
	patientID := createPatient(t)

	scheduleResp := makeRequest(http.MethodPost, "/followups", map[string]interface{}{
		"patient":       patientID,
		"type":          "30day",
		"scheduledDate": time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"notes":         "check feet",
	})
	require.Equal(t, http.StatusCreated, scheduleResp.Code, scheduleResp.Message)
	followUpID := scheduleResp.GetString("id")
	assert.Equal(t, "Scheduled", scheduleResp.Data["status"])

	completeResp := makeRequest(http.MethodPut, "/followups/"+followUpID+"/complete", map[string]interface{}{
		"result": "Abnormal",
	})
	require.Equal(t, http.StatusOK, completeResp.Code, completeResp.Message)
	assert.Equal(t, true, completeResp.Data["isCompleted"])
	assert.Equal(t, "check feet", completeResp.Data["notes"])
	assert.Len(t, completeResp.Data["recommendedTests"], 6)

	cancelResp := makeRequest(http.MethodPut, "/followups/"+followUpID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, cancelResp.Code)

	listResp := makeRequest(http.MethodGet, "/followups/patient/"+patientID, nil)
	assert.True(t, listResp.IsSuccess())
	assert.Len(t, listResp.List, 1)

	badType := makeRequest(http.MethodPost, "/followups", map[string]interface{}{
		"patient":       patientID,
		"type":          "14day",
		"scheduledDate": time.Now().UTC().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, badType.Code)
	assert.Equal(t, "type", badType.Field)
}

func TestReadmissionIncrementsInpatientVisits(t *testing.T) {
	patientID := createPatient(t)

	before := makeRequest(http.MethodGet, "/patients/"+patientID, nil)
	require.True(t, before.IsSuccess())

	resp := makeRequest(http.MethodPost, "/readmissions", map[string]interface{}{
		"patient": patientID,
		"reason":  "Diabetic ketoacidosis",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Message)

	after := makeRequest(http.MethodGet, "/patients/"+patientID, nil)
	require.True(t, after.IsSuccess())
	assert.Equal(t, before.Data["inpatientVisits"].(float64)+1, after.Data["inpatientVisits"])

	report := makeRequest(http.MethodGet, "/reports/patient/"+patientID, nil)
	require.True(t, report.IsSuccess())
	assert.Len(t, report.Data["readmissions"], 1)

	summary := makeRequest(http.MethodGet, "/reports/summary", nil)
	require.True(t, summary.IsSuccess())
	assert.Contains(t, summary.Data, "ageGroups")
}
