package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunSampleScenarios(t *testing.T) {
	var out bytes.Buffer
	err := run(options{scenariosPath: filepath.Join("testdata", "scenarios.yaml"), timezone: "UTC"}, &out)
	if err != nil {
		t.Fatalf("run() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "5 scenarios, 0 failed") {
		t.Fatalf("output = %q, want all scenarios passing", out.String())
	}
	if !strings.Contains(out.String(), "turn_total") {
		t.Fatalf("output = %q, want the stage table", out.String())
	}
}

func TestRunReportsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := `
- name: wrong expectation
  now: "2026-10-19T09:00:00Z"
  messages:
    - role: user
      content: "hello there"
  expect:
    action: create
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var out bytes.Buffer
	if err := run(options{scenariosPath: path, timezone: "UTC"}, &out); err == nil {
		t.Fatalf("run() error = nil, want failure")
	}
	if !strings.Contains(out.String(), "FAIL  wrong expectation") || !strings.Contains(out.String(), "action = none, want create") {
		t.Fatalf("output = %q, want the mismatch reported", out.String())
	}
}

func TestParseScenariosRejectsEmpty(t *testing.T) {
	if _, err := parseScenarios([]byte("[]")); err == nil {
		t.Fatalf("parseScenarios([]) error = nil, want error")
	}
	if _, err := parseScenarios([]byte("- now: x\n")); err == nil {
		t.Fatalf("parseScenarios(unnamed) error = nil, want error")
	}
}

func TestFixturesValidateStatus(t *testing.T) {
	_, err := fixtures([]bookingFixture{{ID: "x", StartTime: "2026-10-20T10:00:00Z", Status: "done"}})
	if err == nil {
		t.Fatalf("fixtures() error = nil, want status error")
	}
	got, err := fixtures([]bookingFixture{{ID: "x", StartTime: "2026-10-20T10:00:00Z"}})
	if err != nil || len(got) != 1 || got[0].Status != "pending" {
		t.Fatalf("fixtures() = %+v, %v, want one pending booking", got, err)
	}
}
