package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/receptionist/internal/config"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/extract"
)

func testConfig() config.Config {
	return config.Config{
		Env:                    "test",
		MetricsNamespace:       "receptionist_test",
		Location:               time.UTC,
		BookingStore:           "memory",
		ExtractorMode:          "rules",
		ExtractTimeout:         time.Second,
		ExtractAttempts:        1,
		DefaultDurationMinutes: 45,
	}
}

func TestBuildWiresDesk(t *testing.T) {
	built, err := Build(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
	}()

	if _, ok := built.Extractor.(*extract.RuleExtractor); !ok {
		t.Fatalf("Extractor = %T, want *RuleExtractor", built.Extractor)
	}
	if got := extract.NameOf(built.Extractor); got != "rules" {
		t.Fatalf("NameOf(Extractor) = %q, want rules", got)
	}
	out, err := built.Desk.HandleTurn(context.Background(), []conversation.Turn{
		conversation.User("I'd like a haircut tomorrow at 10am for Jane, 555-1234"),
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Created == nil {
		t.Fatalf("Created = nil, reply %q", out.Reply)
	}

	families, err := built.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "receptionist_test_") {
			found = true
		}
	}
	if !found {
		t.Fatalf("registry has no receptionist_test_ metrics")
	}
}

func TestBuildRejectsMissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.ServiceCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("Build() error = nil, want catalog failure")
	}
}

func TestBuildRejectsUnknownExtractor(t *testing.T) {
	cfg := testConfig()
	cfg.ExtractorMode = "psychic"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("Build() error = nil, want extractor failure")
	}
}
