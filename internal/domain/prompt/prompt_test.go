package prompt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuild_PreservesOrder(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		retrieved := make([]any, n)
		for i := range retrieved {
			retrieved[i] = map[string]int{"rank": i}
		}

		env := Build("instr", "doc", TypeMarkdown, retrieved)
		if env.Version != "1.0" {
			t.Fatalf("unexpected version %q", env.Version)
		}
		if len(env.RetrievedContext) != n {
			t.Fatalf("n=%d: expected %d items, got %d", n, n, len(env.RetrievedContext))
		}
		for i, item := range env.RetrievedContext {
			if item.Type != TypeJSON {
				t.Errorf("item %d: unexpected type %q", i, item.Type)
			}
			if item.Content.(map[string]int)["rank"] != i {
				t.Errorf("item %d out of order", i)
			}
		}
	}
}

func TestBuild_UserInput(t *testing.T) {
	env := Build("i", "design body", TypeMarkdown, nil)
	if env.UserInput.Type != "text/markdown" || env.UserInput.Content != "design body" {
		t.Errorf("unexpected user input: %+v", env.UserInput)
	}
	if env.RetrievedContext == nil {
		t.Error("retrieved context must be an empty slice, not nil")
	}
}

func TestEnvelope_JSONKeys(t *testing.T) {
	raw, err := json.Marshal(Build("i", "u", TypeMarkdown, nil))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"1.0","instructions":"i","user_input":{"type":"text/markdown","content":"u"},"retrieved_context":[]}`
	if string(raw) != want {
		t.Errorf("got %s\nwant %s", raw, want)
	}
}

func TestRender(t *testing.T) {
	env := Build("Write a note.", "新しい機能", TypeMarkdown, []any{
		map[string]string{"a": "<b>"},
		map[string]string{"c": "d"},
	})

	got, err := Render(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Instructions: Write a note.\n\n" +
		"User Input: 新しい機能\n\n" +
		"Retrieved Context 1:\n{\n  \"a\": \"<b>\"\n}\n\n" +
		"Retrieved Context 2:\n{\n  \"c\": \"d\"\n}\n\n" +
		ClosingLine
	if got != want {
		t.Errorf("unexpected render:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestRenderBody_OmitsInstructions(t *testing.T) {
	body, err := RenderBody(Build("secret instructions", "u", TypeMarkdown, nil))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(body, "secret instructions") {
		t.Error("body must not contain instructions")
	}
	if !strings.HasSuffix(body, ClosingLine) {
		t.Error("body must end with the closing line")
	}
}

func TestRender_UnmarshalableContent(t *testing.T) {
	env := Build("i", "u", TypeMarkdown, []any{make(chan int)})
	if _, err := Render(env); err == nil {
		t.Fatal("expected error for unmarshalable content")
	}
}
