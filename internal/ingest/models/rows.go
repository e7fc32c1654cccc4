package models

import (
	"strings"
)

// Feed names the upstream a row came from. It is recorded as the source of
// unresolved names.
type Feed string

const (
	FeedMeetings Feed = "meetings"
	FeedSurveys  Feed = "surveys"
	FeedAging    Feed = "aging"
)

// MeetingAction is the lifecycle step a meeting row carries.
type MeetingAction string

const (
	ActionCreate   MeetingAction = "create"
	ActionComplete MeetingAction = "complete"
	ActionDelete   MeetingAction = "delete"
)

// MeetingRow is a raw meeting lifecycle record. ClientName, EventType and
// Date are only read for create.
type MeetingRow struct {
	Action     MeetingAction `json:"action"`
	ExternalID string        `json:"external_id"`
	ClientName string        `json:"client_name,omitempty"`
	EventType  string        `json:"event_type,omitempty"`
	Date       string        `json:"date,omitempty"`
	Completed  bool          `json:"completed,omitempty"`
}

// Normalize trims fields and defaults the action to create.
func (r *MeetingRow) Normalize() {
	r.Action = MeetingAction(strings.ToLower(strings.TrimSpace(string(r.Action))))
	if r.Action == "" {
		r.Action = ActionCreate
	}
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	r.EventType = strings.TrimSpace(r.EventType)
}

type SurveyRow struct {
	ClientName  string `json:"client_name"`
	Score       *int   `json:"score"`
	RespondedAt string `json:"responded_at"`
	Period      string `json:"period,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
}

type AgingRow struct {
	ClientName string  `json:"client_name"`
	AsOf       string  `json:"as_of"`
	Current    float64 `json:"current"`
	D1To30     float64 `json:"d1_30"`
	D31To60    float64 `json:"d31_60"`
	D61To90    float64 `json:"d61_90"`
	D91To120   float64 `json:"d91_120"`
	D121Plus   float64 `json:"d121_plus"`
}

func (r *AgingRow) Buckets() [6]float64 {
	return [6]float64{r.Current, r.D1To30, r.D31To60, r.D61To90, r.D91To120, r.D121Plus}
}

// Rejection explains why one row was not applied. Row is the zero-based
// index in the submitted batch.
type Rejection struct {
	Row        int    `json:"row"`
	ExternalID string `json:"external_id,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

// Report summarises a batch. Rows are applied independently.
type Report struct {
	Feed     Feed        `json:"feed"`
	Received int         `json:"received"`
	Accepted int         `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

func NewReport(feed Feed, received int) *Report {
	return &Report{Feed: feed, Received: received, Rejected: []Rejection{}}
}
