package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role identifies who spoke a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrEmptyHistory    = errors.New("conversation history is empty")
	ErrUnsupportedRole = errors.New("unsupported turn role")
	ErrEmptyContent    = errors.New("turn content is empty")
)

// Turn is one entry of the transcript, oldest first.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func User(content string) Turn      { return Turn{Role: RoleUser, Content: content} }
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

type envelope struct {
	Messages []Turn `json:"messages"`
}

// ParseHistory decodes a {"messages":[...]} payload and validates it.
func ParseHistory(raw []byte) ([]Turn, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid history payload: %w", err)
	}
	if err := Validate(env.Messages); err != nil {
		return nil, err
	}
	return env.Messages, nil
}

// Validate requires at least one turn, known roles and non-blank content.
func Validate(history []Turn) error {
	if len(history) == 0 {
		return ErrEmptyHistory
	}
	for i, turn := range history {
		switch turn.Role {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("turn %d: %w: %q", i, ErrUnsupportedRole, turn.Role)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return fmt.Errorf("turn %d: %w", i, ErrEmptyContent)
		}
	}
	return nil
}

// LastUser returns the index of the most recent user turn, or -1.
func LastUser(history []Turn) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// UserTurns returns the indexes of every user turn in order.
func UserTurns(history []Turn) []int {
	out := make([]int, 0, len(history))
	for i, turn := range history {
		if turn.Role == RoleUser {
			out = append(out, i)
		}
	}
	return out
}

// PrecedingAssistant returns the assistant turn immediately before index i.
func PrecedingAssistant(history []Turn, i int) (Turn, bool) {
	if i <= 0 || i > len(history) {
		return Turn{}, false
	}
	prev := history[i-1]
	if prev.Role != RoleAssistant {
		return Turn{}, false
	}
	return prev, true
}

// Append returns a copy of history with turn added.
func Append(history []Turn, turn Turn) []Turn {
	out := make([]Turn, 0, len(history)+1)
	out = append(out, history...)
	return append(out, turn)
}
