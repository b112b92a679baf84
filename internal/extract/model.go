package extract

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/catalog"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/reliability"
)

//go:embed prompt.txt
var promptTemplate string

// Upper bound on a model-stated duration; anything above is malformed output.
const maxModelDurationMinutes = 24 * 60

const (
	defaultModelTimeout  = 20 * time.Second
	defaultModelAttempts = 2
	modelBackoffBase     = 250 * time.Millisecond
	modelBackoffCap      = 2 * time.Second
)

// Generator produces a completion for a single prompt. Implementations are
// expected to ask the backing model for a JSON object.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

type ModelOptions struct {
	Timeout  time.Duration
	Attempts int
}

// ModelExtractor delegates interpretation to a language model.
type ModelExtractor struct {
	gen      Generator
	catalog  *catalog.Catalog
	loc      *time.Location
	timeout  time.Duration
	attempts int
	logger   *zap.Logger
}

func NewModelExtractor(gen Generator, cat *catalog.Catalog, loc *time.Location, opts ModelOptions, logger *zap.Logger) *ModelExtractor {
	if cat == nil {
		cat = catalog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultModelTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultModelAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelExtractor{
		gen:      gen,
		catalog:  cat,
		loc:      loc,
		timeout:  opts.Timeout,
		attempts: opts.Attempts,
		logger:   logger,
	}
}

func (m *ModelExtractor) Name() string { return "model:" + m.gen.Name() }

func (m *ModelExtractor) Extract(ctx context.Context, req Request) (Extraction, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(m.loc)
	prompt := m.render(req, now)

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	started := time.Now()
	var raw string
	err := reliability.Retry(callCtx, m.attempts, modelBackoffBase, modelBackoffCap, func(ctx context.Context) error {
		out, err := m.gen.Generate(ctx, prompt)
		if err != nil {
			m.logger.Warn("model generation failed", zap.String("generator", m.gen.Name()), zap.Error(err))
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Extraction{}, ctx.Err()
		}
		return Extraction{}, oops.
			In("extract").
			Code("model_unavailable").
			With("generator", m.gen.Name()).
			Wrapf(fmt.Errorf("%w: %w", ErrExtraction, err), "model call failed")
	}

	ex, err := m.parse(raw, req.Bookings)
	if err != nil {
		return Extraction{}, oops.
			In("extract").
			Code("model_malformed").
			With("generator", m.gen.Name()).
			With("output_bytes", len(raw)).
			Wrapf(fmt.Errorf("%w: %w", ErrExtraction, err), "model output rejected")
	}
	m.logger.Debug("model extraction",
		zap.String("generator", m.gen.Name()),
		zap.String("intent", string(ex.Intent)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return ex, nil
}

func (m *ModelExtractor) render(req Request, now time.Time) string {
	values := map[string]string{
		"now":        now.Format(time.RFC3339),
		"timezone":   m.loc.String(),
		"services":   strings.Join(m.catalog.Names(), ", "),
		"bookings":   formatBookings(req.Bookings, m.loc),
		"transcript": formatTranscript(req.History),
	}
	prompt := promptTemplate
	for key, value := range values {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", value)
	}
	return prompt
}

func formatBookings(bookings []booking.Booking, loc *time.Location) string {
	if len(bookings) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(bookings))
	for _, b := range bookings {
		lines = append(lines, strings.Join([]string{
			b.ID,
			b.GuestName,
			b.PhoneNumber,
			b.Service,
			b.StartTime.In(loc).Format(time.RFC3339),
			string(b.Status),
		}, " | "))
	}
	return strings.Join(lines, "\n")
}

func formatTranscript(history []conversation.Turn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		speaker := "Guest"
		if turn.Role == conversation.RoleAssistant {
			speaker = "Receptionist"
		}
		lines = append(lines, speaker+": "+strings.TrimSpace(turn.Content))
	}
	return strings.Join(lines, "\n")
}

type modelReply struct {
	Intent          string      `json:"intent"`
	GuestName       string      `json:"guestName"`
	PhoneNumber     string      `json:"phoneNumber"`
	Email           string      `json:"email"`
	Service         string      `json:"service"`
	Notes           string      `json:"notes"`
	StartTime       string      `json:"startTime"`
	TimeExpression  string      `json:"timeExpression"`
	DurationMinutes json.Number `json:"durationMinutes"`
	BookingID       string      `json:"bookingId"`
}

func (m *ModelExtractor) parse(raw string, bookings []booking.Booking) (Extraction, error) {
	body := cleanJSON(raw)
	if body == "" {
		return Extraction{}, errors.New("empty model output")
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return Extraction{}, fmt.Errorf("decode model output: %w", err)
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(reply.Intent)))
	if !intent.Valid() {
		return Extraction{}, fmt.Errorf("unknown intent %q", reply.Intent)
	}

	fields := Fields{
		GuestName:      strings.TrimSpace(reply.GuestName),
		PhoneNumber:    strings.TrimSpace(reply.PhoneNumber),
		Email:          strings.TrimSpace(reply.Email),
		Service:        strings.ToLower(strings.TrimSpace(reply.Service)),
		Notes:          strings.TrimSpace(reply.Notes),
		TimeExpression: strings.TrimSpace(reply.TimeExpression),
	}
	if s, ok := m.catalog.Lookup(fields.Service); ok {
		fields.Service = s.Name
	}
	if reply.DurationMinutes != "" {
		minutes, err := reply.DurationMinutes.Float64()
		if err != nil {
			return Extraction{}, fmt.Errorf("invalid durationMinutes %q", reply.DurationMinutes)
		}
		if minutes != math.Trunc(minutes) || minutes < 0 || minutes > maxModelDurationMinutes {
			return Extraction{}, fmt.Errorf("durationMinutes %q is not a whole number of minutes within a day", reply.DurationMinutes)
		}
		fields.DurationMinutes = int(minutes)
	}
	if raw := strings.TrimSpace(reply.StartTime); raw != "" {
		start, err := booking.ParseInstant(raw)
		if err != nil {
			if fields.TimeExpression == "" {
				fields.TimeExpression = raw
			}
		} else {
			start = start.In(m.loc)
			fields.StartTime = &start
		}
	}
	if id := strings.TrimSpace(reply.BookingID); id != "" {
		for _, b := range bookings {
			if b.ID == id {
				fields.BookingID = id
				break
			}
		}
	}
	return finalize(Extraction{Intent: intent, Fields: fields}), nil
}

func cleanJSON(raw string) string {
	result := strings.TrimSpace(raw)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)
	start := strings.Index(result, "{")
	end := strings.LastIndex(result, "}")
	if start < 0 || end < start {
		return result
	}
	return result[start : end+1]
}
