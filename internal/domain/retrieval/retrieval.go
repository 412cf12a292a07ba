// Package retrieval projects ranked index hits back into the corpus shape.
package retrieval

import (
	"github.com/kailas-cloud/docsage/internal/domain/chunk"
	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

// Doc is a query-time reconstruction of a hit.
// Exactly one of FinalReleaseNote or ReviewComments is populated.
type Doc struct {
	FinalReleaseNote string
	ReviewComments   []corpus.ReviewComment
}

// FromHit maps the hit's content type to the matching field.
func FromHit(h chunk.Hit) Doc {
	switch h.ContentType {
	case chunk.ContentReleaseNote:
		return Doc{FinalReleaseNote: h.Content, ReviewComments: []corpus.ReviewComment{}}
	case chunk.ContentReviewComment:
		return Doc{ReviewComments: []corpus.ReviewComment{{
			CommentText: h.Content,
			ContextLine: h.ContextLine,
		}}}
	default:
		return Doc{ReviewComments: []corpus.ReviewComment{}}
	}
}

// DraftContext is the context record fed to draft generation. Ticket identity is dropped.
type DraftContext struct {
	RetrievedReleaseNote    string                 `json:"retrieved_release_note"`
	RetrievedReviewComments []corpus.ReviewComment `json:"retrieved_review_comments"`
}

// ReviewContext is the context record fed to review generation.
type ReviewContext struct {
	PastReviewComment  string `json:"past_review_comment"`
	RelatedTicketID    string `json:"related_ticket_id"`
	CommentContextLine string `json:"comment_context_line"`
}

// DraftContexts projects hits in rank order.
func DraftContexts(hits []chunk.Hit) []any {
	out := make([]any, 0, len(hits))
	for _, h := range hits {
		d := FromHit(h)
		out = append(out, DraftContext{
			RetrievedReleaseNote:    d.FinalReleaseNote,
			RetrievedReviewComments: d.ReviewComments,
		})
	}
	return out
}

// ReviewContexts projects hits in rank order, carrying the source ticket id.
func ReviewContexts(hits []chunk.Hit) []any {
	out := make([]any, 0, len(hits))
	for _, h := range hits {
		d := FromHit(h)
		rc := ReviewContext{RelatedTicketID: h.TicketID}
		if len(d.ReviewComments) > 0 {
			rc.PastReviewComment = d.ReviewComments[0].CommentText
			rc.CommentContextLine = d.ReviewComments[0].ContextLine
		}
		out = append(out, rc)
	}
	return out
}
