package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// FieldError names one violated rule on one draft field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError reports every draft field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "invalid booking: " + strings.Join(parts, ", ")
}

// FieldNames returns the violated field names in report order without duplicates.
func (e *ValidationError) FieldNames() []string {
	seen := make(map[string]struct{}, len(e.Fields))
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := seen[f.Field]; ok {
			continue
		}
		seen[f.Field] = struct{}{}
		out = append(out, f.Field)
	}
	return out
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks the draft against the booking invariants. It returns a
// *ValidationError listing every violated field, or nil.
func (d Draft) Validate() error {
	d = d.Normalize()
	var fields []FieldError
	if err := draftValidator().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate draft: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

type rawDraft struct {
	GuestName       string `json:"guestName"`
	PhoneNumber     string `json:"phoneNumber"`
	Email           string `json:"email"`
	Service         string `json:"service"`
	Notes           string `json:"notes"`
	StartTime       string `json:"startTime"`
	DurationMinutes *int   `json:"durationMinutes"`
}

// ParseDraft decodes a manual booking request. A malformed startTime is
// reported as a validation failure on that field, alongside any other
// violated field.
func ParseDraft(raw []byte) (Draft, error) {
	var in rawDraft
	if err := json.Unmarshal(raw, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Draft{}, &ValidationError{Fields: []FieldError{{Field: typeErr.Field, Rule: "type"}}}
		}
		return Draft{}, fmt.Errorf("decode booking draft: %w", err)
	}

	draft := Draft{
		GuestName:   in.GuestName,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		Service:     in.Service,
		Notes:       in.Notes,
	}
	if in.DurationMinutes != nil {
		draft.DurationMinutes = *in.DurationMinutes
	}

	var fields []FieldError
	if strings.TrimSpace(in.StartTime) != "" {
		start, err := ParseInstant(in.StartTime)
		if err != nil {
			fields = append(fields, FieldError{Field: "startTime", Rule: "datetime"})
		} else {
			draft.StartTime = start
		}
	}

	if err := draft.Validate(); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return Draft{}, err
		}
		for _, f := range verr.Fields {
			if f.Field == "startTime" && len(fields) > 0 {
				continue
			}
			fields = append(fields, f)
		}
	}
	if len(fields) > 0 {
		return Draft{}, &ValidationError{Fields: fields}
	}
	return draft.Normalize(), nil
}

// ParseInstant parses an RFC 3339 timestamp, with or without fractional
// seconds. The offset is kept as given.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse instant %q: %w", raw, err)
	}
	return t, nil
}
