package chunk

import (
	"testing"

	"github.com/kailas-cloud/docsage/internal/domain/corpus"
)

func TestFromRecord_NoteAndComments(t *testing.T) {
	rec := corpus.Record{
		TicketID:         "PR-1",
		FinalReleaseNote: "Fixed login bug",
		DesignDocument:   "...",
		ReviewComments: []corpus.ReviewComment{
			{CommentText: "Add null check", ContextLine: "File: a.py, Line: 10"},
		},
	}

	chunks := FromRecord(rec)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ID != "PR-1_note" || chunks[0].ContentType != ContentReleaseNote {
		t.Errorf("unexpected note chunk: %+v", chunks[0])
	}
	if chunks[1].ID != "PR-1_comment_0" || chunks[1].ContentType != ContentReviewComment {
		t.Errorf("unexpected comment chunk: %+v", chunks[1])
	}
	if chunks[1].ContextLine != "File: a.py, Line: 10" {
		t.Errorf("context line lost: %q", chunks[1].ContextLine)
	}
}

func TestFromRecord_UniqueIDs(t *testing.T) {
	rec := corpus.Record{TicketID: "PR-7", FinalReleaseNote: "n", DesignDocument: "d"}
	for i := 0; i < 5; i++ {
		rec.ReviewComments = append(rec.ReviewComments, corpus.ReviewComment{CommentText: "c"})
	}

	chunks := FromRecord(rec)
	if len(chunks) != 1+len(rec.ReviewComments) {
		t.Fatalf("expected %d chunks, got %d", 1+len(rec.ReviewComments), len(chunks))
	}
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, dup := seen[c.ID]; dup {
			t.Fatalf("duplicate id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
}

func TestFromRecord_BlankCommentIsIndexed(t *testing.T) {
	rec := corpus.Record{
		TicketID:         "PR-2",
		FinalReleaseNote: "n",
		ReviewComments: []corpus.ReviewComment{
			{CommentText: " "},
			{CommentText: "second"},
		},
	}

	chunks := FromRecord(rec)
	if len(chunks) != 1+len(rec.ReviewComments) {
		t.Fatalf("expected %d chunks, got %d", 1+len(rec.ReviewComments), len(chunks))
	}
	if chunks[1].ID != "PR-2_comment_0" || chunks[1].Content != " " {
		t.Errorf("unexpected blank comment chunk: %+v", chunks[1])
	}
	if chunks[2].ID != "PR-2_comment_1" {
		t.Errorf("expected PR-2_comment_1, got %q", chunks[2].ID)
	}
}

func TestFromRecord_CommentsOnly(t *testing.T) {
	rec := corpus.Record{
		TicketID:       "PR-3",
		ReviewComments: []corpus.ReviewComment{{CommentText: "c"}},
	}

	chunks := FromRecord(rec)
	if len(chunks) != 1 || chunks[0].ContentType != ContentReviewComment {
		t.Fatalf("expected one comment chunk, got %+v", chunks)
	}
}

func TestParseContentType(t *testing.T) {
	for _, s := range []string{"release_note", "review_comment"} {
		if _, err := ParseContentType(s); err != nil {
			t.Errorf("ParseContentType(%q): %v", s, err)
		}
	}
	if _, err := ParseContentType("design_doc"); err == nil {
		t.Error("expected error for unknown content type")
	}
}
