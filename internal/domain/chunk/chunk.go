// Package chunk defines the unit of text that is embedded and stored in the vector index.
package chunk

import (
	"fmt"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

// ContentType partitions the index into release notes and review comments.
type ContentType string

const (
	// ContentReleaseNote marks a chunk holding a final release note body.
	ContentReleaseNote ContentType = "release_note"
	// ContentReviewComment marks a chunk holding a single review comment.
	ContentReviewComment ContentType = "review_comment"
)

// Metadata keys stored alongside every chunk.
const (
	FieldTicketID    = "ticket_id"
	FieldContentType = "content_type"
	FieldContextLine = "context_line"
)

// ParseContentType converts a stored tag back into the closed enum.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentReleaseNote, ContentReviewComment:
		return ContentType(s), nil
	default:
		return "", fmt.Errorf("unknown content type %q", s)
	}
}

// Chunk is an indexed piece of text with its metadata tags and embedding.
type Chunk struct {
	ID          string
	TicketID    string
	ContentType ContentType
	ContextLine string
	Content     string
	Vector      []float32
}

// Tags returns the metadata used for filtering.
func (c Chunk) Tags() map[string]string {
	return map[string]string{
		FieldTicketID:    c.TicketID,
		FieldContentType: string(c.ContentType),
		FieldContextLine: c.ContextLine,
	}
}

// Hit is a ranked query result.
type Hit struct {
	Chunk
	Score float64
}

// NoteID derives the id of a release-note chunk.
func NoteID(ticketID string) string {
	return ticketID + "_note"
}

// CommentID derives the id of the n-th review comment chunk of a ticket.
func CommentID(ticketID string, n int) string {
	return fmt.Sprintf("%s_comment_%d", ticketID, n)
}

// FromRecord splits a record into one note chunk plus one chunk per review comment.
// Vectors are left empty. Every comment yields a chunk, blank ones included.
// The note chunk is omitted when the record has no note.
func FromRecord(r corpus.Record) []Chunk {
	out := make([]Chunk, 0, 1+len(r.ReviewComments))
	if r.HasNote() {
		out = append(out, Chunk{
			ID:          NoteID(r.TicketID),
			TicketID:    r.TicketID,
			ContentType: ContentReleaseNote,
			Content:     r.FinalReleaseNote,
		})
	}
	for n, c := range r.ReviewComments {
		out = append(out, Chunk{
			ID:          CommentID(r.TicketID, n),
			TicketID:    r.TicketID,
			ContentType: ContentReviewComment,
			ContextLine: c.ContextLine,
			Content:     c.CommentText,
		})
	}
	return out
}
