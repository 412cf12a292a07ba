package filter

import (
	"strings"
	"testing"
)

func mustMatch(t *testing.T, key, value string) Condition {
	t.Helper()
	c, err := NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch(%q, %q): %v", key, value, err)
	}
	return c
}

func TestNewMatch_Validation(t *testing.T) {
	if _, err := NewMatch("", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
	_, err := NewMatch("content_type", "")
	if err == nil || !strings.Contains(err.Error(), "content_type") {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = mustMatch(t, "k", "v")
	}
	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for must overflow")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for should overflow")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for must_not overflow")
	}
}

func TestExpression_Matches(t *testing.T) {
	comment := map[string]string{"content_type": "review_comment", "ticket_id": "PR-1"}
	note := map[string]string{"content_type": "release_note", "ticket_id": "PR-2"}

	should, err := NewExpression(nil, []Condition{
		mustMatch(t, "ticket_id", "PR-1"),
		mustMatch(t, "ticket_id", "PR-3"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mustNot, err := NewExpression(nil, nil, []Condition{mustMatch(t, "ticket_id", "PR-1")})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		expr Expression
		tags map[string]string
		want bool
	}{
		{"empty matches comment", Expression{}, comment, true},
		{"empty matches nil tags", Expression{}, nil, true},
		{"eq hit", Eq("content_type", "review_comment"), comment, true},
		{"eq miss", Eq("content_type", "review_comment"), note, false},
		{"eq missing key", Eq("context_line", "x"), note, false},
		{"should hit", should, comment, true},
		{"should miss", should, note, false},
		{"must_not excludes", mustNot, comment, false},
		{"must_not passes", mustNot, note, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.Matches(tt.tags); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero value must be empty")
	}
	if Eq("a", "b").IsEmpty() {
		t.Error("Eq must not be empty")
	}
}

func TestExpression_And(t *testing.T) {
	base, err := NewExpression(nil, nil, []Condition{mustMatch(t, "ticket_id", "PR-1")})
	if err != nil {
		t.Fatal(err)
	}
	e := base.And("content_type", "review_comment")

	if len(base.Must()) != 0 {
		t.Fatal("And must not modify the receiver")
	}
	if len(e.Must()) != 1 || len(e.MustNot()) != 1 {
		t.Fatalf("unexpected expression %+v", e)
	}
	if e.Matches(map[string]string{"content_type": "review_comment", "ticket_id": "PR-1"}) {
		t.Error("excluded ticket must not match")
	}
	if !e.Matches(map[string]string{"content_type": "review_comment", "ticket_id": "PR-2"}) {
		t.Error("other ticket must match")
	}
}
