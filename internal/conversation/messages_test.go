package conversation

import (
	"errors"
	"testing"
)

func TestParseHistory(t *testing.T) {
	raw := []byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"},{"role":"user","content":"book me"}]}`)
	history, err := ParseHistory(raw)
	if err != nil {
		t.Fatalf("ParseHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[2].Role != RoleUser || history[2].Content != "book me" {
		t.Fatalf("unexpected last turn: %+v", history[2])
	}
}

func TestParseHistoryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: `{"messages":[]}`, want: ErrEmptyHistory},
		{name: "role", raw: `{"messages":[{"role":"system","content":"x"}]}`, want: ErrUnsupportedRole},
		{name: "content", raw: `{"messages":[{"role":"user","content":"  "}]}`, want: ErrEmptyContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHistory([]byte(tc.raw))
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := ParseHistory([]byte(`not json`)); err == nil {
		t.Fatalf("ParseHistory(not json) expected error")
	}
}

func TestTurnHelpers(t *testing.T) {
	history := []Turn{
		User("hi"),
		Assistant("What's your name?"),
		User("Jane"),
		Assistant("Thanks"),
	}
	if got := LastUser(history); got != 2 {
		t.Fatalf("LastUser() = %d, want 2", got)
	}
	if got := UserTurns(history); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("UserTurns() = %v, want [0 2]", got)
	}
	prev, ok := PrecedingAssistant(history, 2)
	if !ok || prev.Content != "What's your name?" {
		t.Fatalf("PrecedingAssistant() = %+v, %v", prev, ok)
	}
	if _, ok := PrecedingAssistant(history, 0); ok {
		t.Fatalf("PrecedingAssistant(0) ok = true, want false")
	}

	extended := Append(history[:1], User("again"))
	if len(extended) != 2 || history[1].Role != RoleAssistant {
		t.Fatalf("Append() mutated input or returned %+v", extended)
	}
}
