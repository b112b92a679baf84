package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultMatch(t *testing.T) {
	c := Default()
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "I'd like a haircut tomorrow", want: "haircut", ok: true},
		{text: "Can I get a hair cut?", want: "haircut", ok: true},
		{text: "two massages please", want: "massage", ok: true},
		{text: "I need my beard trim done", want: "beard trim", ok: true},
		{text: "hair color on Friday", want: "hair coloring", ok: true},
		{text: "cancel my appointment", ok: false},
	}
	for _, tc := range tests {
		got, ok := c.Match(tc.text)
		if ok != tc.ok || (ok && got.Name != tc.want) {
			t.Fatalf("Match(%q) = %q, %v, want %q, %v", tc.text, got.Name, ok, tc.want, tc.ok)
		}
	}
}

func TestDurationFor(t *testing.T) {
	c := Default()
	if got, ok := c.DurationFor("Haircut"); !ok || got != 30 {
		t.Fatalf("DurationFor(Haircut) = %d, %v, want 30, true", got, ok)
	}
	if got, ok := c.DurationFor("deep tissue"); !ok || got != 60 {
		t.Fatalf("DurationFor(deep tissue) = %d, %v, want 60, true", got, ok)
	}
	if _, ok := c.DurationFor("tattoo"); ok {
		t.Fatalf("DurationFor(tattoo) ok = true, want false")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	body := "services:\n  - name: Tattoo\n    aliases: [ink]\n    duration_minutes: 120\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s, ok := c.Match("some fresh ink")
	if !ok || s.Name != "tattoo" || s.DurationMinutes != 120 {
		t.Fatalf("Match() = %+v, %v", s, ok)
	}
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	tests := []string{
		"services: []\n",
		"services:\n  - name: ''\n    duration_minutes: 30\n",
		"services:\n  - name: marathon\n    duration_minutes: 600\n",
	}
	for _, body := range tests {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("Parse(%q) expected error", body)
		}
	}
}
