package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ent0n29/receptionist/internal/assistant"
	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/catalog"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/extract"
	"github.com/ent0n29/receptionist/internal/observability"
	"github.com/ent0n29/receptionist/internal/reply"
	"github.com/ent0n29/receptionist/internal/resolve"
)

type options struct {
	scenariosPath string
	catalogPath   string
	timezone      string
	verbose       bool
}

type scenario struct {
	Name     string           `yaml:"name"`
	Now      string           `yaml:"now"`
	Bookings []bookingFixture `yaml:"bookings"`
	Messages []message        `yaml:"messages"`
	Expect   expectation      `yaml:"expect"`
}

type message struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

type bookingFixture struct {
	ID              string `yaml:"id"`
	GuestName       string `yaml:"guestName"`
	PhoneNumber     string `yaml:"phoneNumber"`
	Email           string `yaml:"email"`
	Service         string `yaml:"service"`
	StartTime       string `yaml:"startTime"`
	DurationMinutes int    `yaml:"durationMinutes"`
	Status          string `yaml:"status"`
}

type expectation struct {
	Action    string   `yaml:"action"`
	Reason    string   `yaml:"reason"`
	Status    string   `yaml:"status"`
	Service   string   `yaml:"service"`
	BookingID string   `yaml:"bookingId"`
	Missing   []string `yaml:"missing"`
}

type outcome struct {
	name     string
	failures []string
	reply    string
}

func main() {
	cfg := parseFlags()
	if cfg.scenariosPath == "" {
		fmt.Fprintln(os.Stderr, "replay: -scenarios is required")
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var cfg options
	flag.StringVar(&cfg.scenariosPath, "scenarios", "", "YAML file of transcripts and expected actions")
	flag.StringVar(&cfg.catalogPath, "catalog", "", "optional service catalog YAML (defaults to the built-in catalog)")
	flag.StringVar(&cfg.timezone, "timezone", "UTC", "zone used to read relative times")
	flag.BoolVar(&cfg.verbose, "verbose", false, "print every reply")
	flag.Parse()
	return cfg
}

func run(cfg options, out io.Writer) error {
	raw, err := os.ReadFile(cfg.scenariosPath)
	if err != nil {
		return fmt.Errorf("read scenarios: %w", err)
	}
	scenarios, err := parseScenarios(raw)
	if err != nil {
		return err
	}
	services, err := catalog.Load(cfg.catalogPath)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	stages := observability.NewStageWindow(len(scenarios) + 1)
	failed := 0
	for _, sc := range scenarios {
		res := replay(sc, services, loc, stages)
		status := "PASS"
		if len(res.failures) > 0 {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "%s  %s\n", status, res.name)
		for _, f := range res.failures {
			fmt.Fprintf(out, "      %s\n", f)
		}
		if cfg.verbose || len(res.failures) > 0 {
			fmt.Fprintf(out, "      reply: %s\n", res.reply)
		}
	}

	printStages(out, stages.Snapshot())
	fmt.Fprintf(out, "%d scenarios, %d failed\n", len(scenarios), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}

func parseScenarios(raw []byte) ([]scenario, error) {
	var scenarios []scenario
	if err := yaml.Unmarshal(raw, &scenarios); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found")
	}
	for i, sc := range scenarios {
		if strings.TrimSpace(sc.Name) == "" {
			return nil, fmt.Errorf("scenario %d has no name", i)
		}
	}
	return scenarios, nil
}

func replay(sc scenario, services *catalog.Catalog, loc *time.Location, stages *observability.StageWindow) outcome {
	res := outcome{name: sc.Name}
	fail := func(format string, args ...any) {
		res.failures = append(res.failures, fmt.Sprintf(format, args...))
	}

	now := time.Now()
	if sc.Now != "" {
		parsed, err := booking.ParseInstant(sc.Now)
		if err != nil {
			fail("now: %v", err)
			return res
		}
		now = parsed
	}
	bookings, err := fixtures(sc.Bookings)
	if err != nil {
		fail("bookings: %v", err)
		return res
	}
	history := make([]conversation.Turn, 0, len(sc.Messages))
	for _, m := range sc.Messages {
		history = append(history, conversation.Turn{Role: conversation.Role(m.Role), Content: m.Content})
	}

	engine := assistant.NewEngine(assistant.EngineConfig{
		Extractor: extract.NewRuleExtractor(services, loc),
		Resolver:  resolve.New(resolve.Options{Catalog: services}),
		Composer:  reply.NewComposer(loc),
		Stages:    stages,
		Clock:     func() time.Time { return now },
	})
	result, err := engine.RunTurn(context.Background(), history, bookings)
	if err != nil {
		fail("run turn: %v", err)
		return res
	}
	res.reply = result.Reply

	want := sc.Expect
	if want.Action != "" && string(result.Action.Type) != want.Action {
		fail("action = %s, want %s", result.Action.Type, want.Action)
	}
	if want.Reason != "" && string(result.Decision.Reason) != want.Reason {
		fail("reason = %s, want %s", result.Decision.Reason, want.Reason)
	}
	if want.Status != "" && string(result.Action.Status) != want.Status {
		fail("status = %q, want %s", result.Action.Status, want.Status)
	}
	if want.BookingID != "" && result.Action.BookingID != want.BookingID {
		fail("bookingId = %q, want %s", result.Action.BookingID, want.BookingID)
	}
	if want.Service != "" {
		got := ""
		if result.Action.Draft != nil {
			got = result.Action.Draft.Service
		}
		if got != want.Service {
			fail("service = %q, want %s", got, want.Service)
		}
	}
	if want.Missing != nil && !reflect.DeepEqual(result.Decision.Missing, want.Missing) {
		fail("missing = %v, want %v", result.Decision.Missing, want.Missing)
	}
	return res
}

func fixtures(in []bookingFixture) ([]booking.Booking, error) {
	out := make([]booking.Booking, 0, len(in))
	for _, f := range in {
		start, err := booking.ParseInstant(f.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.ID, err)
		}
		status := booking.StatusPending
		if f.Status != "" {
			status, err = booking.ParseStatus(f.Status)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.ID, err)
			}
		}
		out = append(out, booking.Booking{
			ID:              f.ID,
			GuestName:       f.GuestName,
			PhoneNumber:     f.PhoneNumber,
			Email:           f.Email,
			Service:         f.Service,
			StartTime:       start,
			DurationMinutes: f.DurationMinutes,
			Status:          status,
		})
	}
	return out, nil
}

func printStages(out io.Writer, snap observability.StageSnapshot) {
	if len(snap.Stages) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%-10s %6s %9s %9s %9s %10s\n", "stage", "n", "p50_ms", "p95_ms", "p99_ms", "target_p95")
	for _, s := range snap.Stages {
		fmt.Fprintf(out, "%-10s %6d %9.2f %9.2f %9.2f %10.0f\n", s.Stage, s.Samples, s.P50MS, s.P95MS, s.P99MS, s.TargetP95MS)
	}
	for _, ind := range snap.Indicators {
		fmt.Fprintf(out, "%-24s %d\n", ind.Name, ind.Count)
	}
	fmt.Fprintln(out)
}
