package main

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/receptionist/internal/assistant"
	"github.com/ent0n29/receptionist/internal/booking"
)

func runConsole(t *testing.T, input string) (string, *console) {
	t.Helper()
	desk := assistant.NewDesk(assistant.NewEngine(assistant.EngineConfig{}), booking.NewInMemoryStore())
	var out bytes.Buffer
	c := newConsole(desk, &out, time.UTC)
	if err := c.run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	return out.String(), c
}

func TestConsoleBooksAndLists(t *testing.T) {
	out, c := runConsole(t, "I'd like a haircut tomorrow at 10am for Jane, 555-1234\n/all\n/quit\n")
	if !strings.Contains(out, "receptionist> You're booked, Jane") {
		t.Fatalf("output = %q, want booking confirmation", out)
	}
	if !strings.Contains(out, "pending") || !strings.Contains(out, "haircut") {
		t.Fatalf("output = %q, want listed booking", out)
	}
	if len(c.history) != 0 {
		t.Fatalf("len(history) = %d, want cleared after a booking", len(c.history))
	}
}

func TestConsoleKeepsTranscriptUntilDone(t *testing.T) {
	out, c := runConsole(t, "I want to book a massage\n")
	if !strings.Contains(out, "your name") {
		t.Fatalf("output = %q, want a follow-up question", out)
	}
	if len(c.history) != 2 {
		t.Fatalf("len(history) = %d, want user and assistant turns", len(c.history))
	}
}

func TestConsoleCommands(t *testing.T) {
	input := strings.Join([]string{
		`/book {"guestName":"Sam","service":"facial"}`,
		"/status only-one",
		"/status nope confirmed",
		"/bookings",
		"/stages",
		"/frobnicate",
		"/reset",
	}, "\n")
	out, _ := runConsole(t, input)
	for _, want := range []string{
		"invalid fields:",
		"usage: /status",
		"no booking nope",
		"no bookings",
		"no turns yet",
		"unknown command /frobnicate",
		"conversation cleared",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output = %q, missing %q", out, want)
		}
	}
}

func TestConsoleQuitReleasesReader(t *testing.T) {
	before := runtime.NumGoroutine()
	runConsole(t, "/quit\nstill typing\nand more\n")

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("NumGoroutine() = %d, want <= %d after quit", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
