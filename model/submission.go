package model

import "strings"

// Status is the moderation state of a submission.
type Status int

const (
	// StatusPending is the initial state of every submission.
	StatusPending Status = iota
	// StatusApproved means the submission was published.
	StatusApproved
	// StatusRejected means a moderator declined the submission.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Verdict is a moderator's decision on a pending submission.
type Verdict int

const (
	Approve Verdict = iota + 1
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Payload is the user-authored content of a confession.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"description"`
	// ImageURL is nil when no image was attached.
	ImageURL *string `json:"imageUrl,omitempty"`
}

// Image returns the attached image URL and whether one is present.
func (p Payload) Image() (string, bool) {
	if p.ImageURL == nil {
		return "", false
	}
	return *p.ImageURL, true
}

// Submission represents a row of the confessions table.
type Submission struct {
	ID          int64
	Payload     Payload
	SubmitterID string
	Status      Status
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
