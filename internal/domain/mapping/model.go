// Package mapping is the manual NAMASTE to ICD-11 mapping review workflow.
// Clinicians propose a mapping, reviewers approve or reject it once.
package mapping

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

const (
	DefaultConfidence = 85
	DefaultCreator    = "anonymous"
	DefaultReviewer   = "admin"
)

type Mapping struct {
	ID             string     `json:"id"`
	NamasteCode    string     `json:"namasteCode"`
	NamasteDisplay string     `json:"namasteDisplay"`
	ICD11Code      string     `json:"icd11Code"`
	ICD11Display   string     `json:"icd11Display"`
	Confidence     float64    `json:"confidence"`
	Status         Status     `json:"status"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	Notes          string     `json:"notes"`
	ReviewerNotes  string     `json:"reviewerNotes,omitempty"`
	ValidatedBy    *string    `json:"validatedBy"`
	ValidatedAt    *time.Time `json:"validatedAt"`
}

func newID() string {
	return "MAP_" + uuid.NewString()
}

// Review is a reviewer's decision on a pending mapping.
type Review struct {
	Approved bool
	Notes    string
	Reviewer string
}

// apply records the decision. Only pending mappings can be reviewed.
func (m *Mapping) apply(r Review, at time.Time) error {
	if m.Status != StatusPendingReview {
		return ErrInvalidTransition
	}
	m.Status = StatusRejected
	if r.Approved {
		m.Status = StatusApproved
	}
	reviewer := r.Reviewer
	m.ReviewerNotes = r.Notes
	m.ValidatedBy = &reviewer
	m.ValidatedAt = &at
	return nil
}

func (m *Mapping) clone() *Mapping {
	cp := *m
	if m.ValidatedBy != nil {
		v := *m.ValidatedBy
		cp.ValidatedBy = &v
	}
	if m.ValidatedAt != nil {
		v := *m.ValidatedAt
		cp.ValidatedAt = &v
	}
	return &cp
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status      Status
	NamasteCode string
}

func (f Filter) match(m *Mapping) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.NamasteCode != "" && m.NamasteCode != f.NamasteCode {
		return false
	}
	return true
}
