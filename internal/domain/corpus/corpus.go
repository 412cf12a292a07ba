// Package corpus defines historical release-note records consumed by ingestion.
package corpus

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecord signals a record missing required fields.
var ErrInvalidRecord = errors.New("invalid corpus record")

// ReviewComment is a reviewer remark attached to a release note.
// ContextLine is a free-form "File: a.go, Line: 10" locator, empty when not anchored to code.
type ReviewComment struct {
	CommentText string `json:"comment_text"`
	ContextLine string `json:"context_line"`
}

// Record is one historical ticket: the final release note, its design document and review history.
type Record struct {
	TicketID         string          `json:"ticket_id"`
	FinalReleaseNote string          `json:"final_release_note"`
	DesignDocument   string          `json:"design_document"`
	ReviewComments   []ReviewComment `json:"review_comments"`
}

// Validate checks that the required text fields are present.
func (r Record) Validate() error {
	if strings.TrimSpace(r.TicketID) == "" {
		return fmt.Errorf("%w: ticket_id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.FinalReleaseNote) == "" {
		return fmt.Errorf("%w: %s: final_release_note is required", ErrInvalidRecord, r.TicketID)
	}
	if strings.TrimSpace(r.DesignDocument) == "" {
		return fmt.Errorf("%w: %s: design_document is required", ErrInvalidRecord, r.TicketID)
	}
	return nil
}

// HasNote reports whether the record carries a release note body.
func (r Record) HasNote() bool {
	return strings.TrimSpace(r.FinalReleaseNote) != ""
}
