package models

import (
	"time"

	"github.com/google/uuid"
)

// Meeting is one two-party call with its action items and, after the meeting
// ends, the sentiment summary produced by the summarization service.
type Meeting struct {
	ID           uuid.UUID  `json:"id"`
	Participant1 string     `json:"participant1"`
	Participant2 string     `json:"participant2"`
	MeetingStart time.Time  `json:"meetingStart"`
	MeetingEnd   *time.Time `json:"meetingEnd,omitempty"`
	Actions      []string   `json:"actions"`
	Sentiment    string     `json:"sentiment,omitempty"`
}
