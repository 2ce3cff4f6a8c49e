package model

// QuickQueryRequest is a free-text clinical question. RecordID, when set,
// attaches the exchange to an existing record's chat thread best-effort.
type QuickQueryRequest struct {
	Question string `json:"question" binding:"required"`
	RecordID string `json:"record_id,omitempty"`
}

// DiagnosisRequest carries the full intake form.
type DiagnosisRequest struct {
	PatientInfo PatientIntake `json:"patient_info" binding:"required"`
}

// SaveXrayRequest persists an already-displayed analysis to the records.
type SaveXrayRequest struct {
	PatientInfo PatientIntake `json:"patient_info"`
	XrayResult  XrayResult    `json:"xray_result" binding:"required"`
}

// AppendChatRequest adds one follow-up question to a record.
type AppendChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// UpdateStatusRequest moves a record to a new status.
type UpdateStatusRequest struct {
	Status RecordStatus `json:"status" binding:"required"`
	Notes  string       `json:"notes,omitempty"`
}
