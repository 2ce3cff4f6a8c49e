package model

import "time"

// RecordStatus is the lifecycle state of a persisted screening record.
// The store is the authority on transition legality; the client only
// checks membership in the enum.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusNormal    RecordStatus = "normal"
	StatusCompleted RecordStatus = "completed"
	StatusFollowUp  RecordStatus = "follow-up"
	StatusTreatment RecordStatus = "treatment"
)

// RecordStatuses lists every valid status.
var RecordStatuses = []RecordStatus{
	StatusPending,
	StatusNormal,
	StatusCompleted,
	StatusFollowUp,
	StatusTreatment,
}

// IsValid reports whether s is one of the five enum values.
func (s RecordStatus) IsValid() bool {
	for _, v := range RecordStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ChatTurn is one question/response exchange appended to a record's
// follow-up thread. Immutable once appended.
type ChatTurn struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// PatientRecord is the persisted outcome of one screening interaction.
// It is created once, then only appended to (chat) or status-updated,
// never deleted by this client.
type PatientRecord struct {
	ID          string        `json:"id"`
	PatientID   string        `json:"patient_id"`
	PatientInfo PatientIntake `json:"patient_info"`
	Result      string        `json:"result"`
	XrayResult  *XrayResult   `json:"xray_result,omitempty"`
	Status      RecordStatus  `json:"status"`
	Notes       string        `json:"notes,omitempty"`
	ChatHistory []ChatTurn    `json:"chat_history"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RecordFilter narrows a record listing. Status filters exact-match;
// search matches case-insensitively against patient ID and name.
type RecordFilter struct {
	Status     RecordStatus
	SearchText string
}
