package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/catalog"
	"github.com/ent0n29/receptionist/internal/conversation"
)

var (
	cancelRe   = regexp.MustCompile(`(?i)\b(cancel\w*|call off|can ?not make it|can't make it|won'?t make it|unable to make it)\b`)
	confirmRe  = regexp.MustCompile(`(?i)\b(confirm\w*|reconfirm\w*|i'?ll be there|i will be there|still on)\b`)
	scheduleRe = regexp.MustCompile(`(?i)\b(book\w*|schedul\w*|reserv\w*|appointment|sign me up|come in|i'?d like|i would like|i want|i need|can i get|could i get|get me|availab\w*|slot)\b`)

	strongNameRe = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|name's|under the name(?: of)?|booked under|it's under)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*)?)`)
	weakNameRe   = regexp.MustCompile(`(?:\b[Tt]his is|\b[Ii]'m|\b[Ii] am|\b[Ii]t's|\b[Ii]ts)\s+([A-Z][a-zA-Z'\-]*(?:\s+[A-Z][a-zA-Z'\-]*)?)`)
	forNameRe    = regexp.MustCompile(`\b[Ff]or\s+([A-Z][a-zA-Z'\-]*(?:\s+[A-Z][a-zA-Z'\-]*)?)`)

	emailRe       = regexp.MustCompile(`[^\s@,;<>()"']+@[^\s@,;<>()"']+`)
	phoneRe       = regexp.MustCompile(`\+?\(?\d[\d\-.\s()]{4,}\d`)
	shortDigitsRe = regexp.MustCompile(`\+?\d[\d\-.\s()]*\d`)
	uuidRe        = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)

	durationMinRe  = regexp.MustCompile(`(?i)\b(\d{1,4})\s*-?\s*(?:minutes?|mins?)\b`)
	durationHourRe = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d+)?)\s*-?\s*(?:hours?|hrs?)\b`)
	durationWordRe = regexp.MustCompile(`(?i)\b(an hour and a half|one and a half hours|half an hour|an hour|one hour|two hours|three hours)\b`)

	notesRe          = regexp.MustCompile(`(?i)(?:\bnotes?\s*:|\bplease note(?:\s+that)?|\bnote that)\s*([^.!?\n]+)`)
	genericServiceRe = regexp.MustCompile(`(?i)\b(?:book|booking|schedule|get|want|need)\s+(?:me\s+)?(?:a|an)\s+([a-z][a-z ]{2,30}?)(?:\s+(?:appointment|session))?(?:\s+(?:for|on|at|tomorrow|today|next|this|with|around)\b|[,.!?]|$)`)
)

var nameStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an the my me i it this that here there looking trying calling wondering
		interested available free just not so sure yes no ok okay please thanks thank hi hello hey good
		fine great back sorry going booked cancel cancelling canceling confirm confirming book booking
		appointment today tomorrow tonight morning afternoon evening noon midnight monday tuesday
		wednesday thursday friday saturday sunday january february march april may june july august
		september october november december next at on in for with and or to be still also actually
		new hoping glad happy here calling ready`) {
		nameStopwords[w] = struct{}{}
	}
}

var genericServiceStopwords = map[string]struct{}{
	"appointment": {}, "booking": {}, "slot": {}, "time": {}, "reservation": {}, "session": {},
	"visit": {}, "spot": {}, "day": {}, "date": {},
}

// RuleExtractor interprets transcripts with deterministic pattern rules.
type RuleExtractor struct {
	catalog *catalog.Catalog
	loc     *time.Location
}

func NewRuleExtractor(cat *catalog.Catalog, loc *time.Location) *RuleExtractor {
	if cat == nil {
		cat = catalog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RuleExtractor{catalog: cat, loc: loc}
}

func (r *RuleExtractor) Name() string { return "rules" }

// Extract replays every user turn oldest first. Later turns override the
// fields they state; temporal parts accumulate separately.
func (r *RuleExtractor) Extract(ctx context.Context, req Request) (Extraction, error) {
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(r.loc)

	state := ruleState{intent: IntentUnclear}
	for _, i := range conversation.UserTurns(req.History) {
		prev, _ := conversation.PrecedingAssistant(req.History, i)
		state.absorb(r, normalizeText(req.History[i].Content), prev.Content, now, req.Bookings)
	}

	ex := Extraction{Intent: state.intent, Fields: state.fields}
	state.when.apply(&ex.Fields, now)
	return finalize(ex), nil
}

type ruleState struct {
	intent Intent
	fields Fields
	when   whenState
}

func (s *ruleState) absorb(r *RuleExtractor, text, prevAssistant string, now time.Time, bookings []booking.Booking) {
	service, hasService := r.catalog.Match(text)

	turnIntent, strong := detectIntent(text)
	if strong {
		s.intent = turnIntent
	} else if hasService && s.intent == IntentUnclear {
		s.intent = IntentSchedule
	}

	t := parseTemporal(text, now)
	s.when.merge(t)
	rest := t.scrubbed

	if email := findEmail(rest); email != "" {
		s.fields.Email = email
		rest = strings.Replace(rest, email, strings.Repeat(" ", len(email)), 1)
	}
	if id := findBookingID(rest, bookings); id != "" {
		s.fields.BookingID = id
		rest = strings.Replace(rest, id, strings.Repeat(" ", len(id)), 1)
	}
	if minutes, rem := findDuration(rest); minutes > 0 {
		s.fields.DurationMinutes = minutes
		rest = rem
	}
	if phone := findPhone(rest, asksFor(prevAssistant, "phone", "number")); phone != "" {
		s.fields.PhoneNumber = phone
	}
	if name := r.findName(text, asksFor(prevAssistant, "name")); name != "" {
		s.fields.GuestName = name
	}
	if hasService {
		s.fields.Service = service.Name
	} else if turnIntent == IntentSchedule {
		if generic := findGenericService(text); generic != "" {
			s.fields.Service = generic
		}
	}
	if m := notesRe.FindStringSubmatch(text); m != nil {
		s.fields.Notes = strings.TrimSpace(m[1])
	}
}

func detectIntent(text string) (Intent, bool) {
	switch {
	case cancelRe.MatchString(text):
		return IntentCancel, true
	case confirmRe.MatchString(text):
		return IntentConfirm, true
	case scheduleRe.MatchString(text):
		return IntentSchedule, true
	default:
		return IntentUnclear, false
	}
}

func normalizeText(text string) string {
	return strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(text)
}

func asksFor(assistant string, words ...string) bool {
	lower := strings.ToLower(assistant)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func findEmail(text string) string {
	matches := emailRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.TrimRight(matches[len(matches)-1], ".!?:")
}

func findBookingID(text string, bookings []booking.Booking) string {
	for _, b := range bookings {
		if len(b.ID) >= 4 && strings.Contains(text, b.ID) {
			return b.ID
		}
	}
	return uuidRe.FindString(text)
}

func findPhone(text string, asked bool) string {
	var found string
	for _, m := range phoneRe.FindAllString(text, -1) {
		if n := countDigits(m); n >= 7 && n <= 15 {
			found = m
		}
	}
	if found == "" && asked {
		for _, m := range shortDigitsRe.FindAllString(text, -1) {
			if n := countDigits(m); n >= booking.MinPhoneLength && n <= 15 {
				found = m
			}
		}
	}
	return strings.TrimSpace(found)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// findDuration returns the stated length in minutes and the text with the
// matched phrases removed.
func findDuration(text string) (int, string) {
	total := 0
	rest := text
	if m := durationWordRe.FindStringSubmatchIndex(rest); m != nil {
		switch strings.ToLower(rest[m[2]:m[3]]) {
		case "an hour and a half", "one and a half hours":
			total += 90
		case "half an hour":
			total += 30
		case "an hour", "one hour":
			total += 60
		case "two hours":
			total += 120
		case "three hours":
			total += 180
		}
		rest = rest[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + rest[m[1]:]
	}
	if m := durationHourRe.FindStringSubmatchIndex(rest); m != nil {
		hours, err := strconv.ParseFloat(rest[m[2]:m[3]], 64)
		if err == nil {
			total += int(hours * 60)
		}
		rest = rest[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + rest[m[1]:]
	}
	if m := durationMinRe.FindStringSubmatchIndex(rest); m != nil {
		minutes, err := strconv.Atoi(rest[m[2]:m[3]])
		if err == nil {
			total += minutes
		}
		rest = rest[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + rest[m[1]:]
	}
	return total, rest
}

func (r *RuleExtractor) findName(text string, asked bool) string {
	if m := strongNameRe.FindStringSubmatch(text); m != nil {
		if name := r.cleanName(m[1]); name != "" {
			return name
		}
	}
	if m := weakNameRe.FindStringSubmatch(text); m != nil {
		if name := r.cleanName(m[1]); name != "" {
			return name
		}
	}
	for _, m := range forNameRe.FindAllStringSubmatch(text, -1) {
		if name := r.cleanName(m[1]); name != "" {
			return name
		}
	}
	if asked {
		return r.leadingName(text)
	}
	return ""
}

// leadingName reads a bare reply such as "Jane Doe, 555-1234" to a question
// that asked for the name.
func (r *RuleExtractor) leadingName(text string) string {
	text = strings.TrimSpace(text)
	end := strings.IndexFunc(text, func(c rune) bool {
		return !(unicode.IsLetter(c) || c == ' ' || c == '\'' || c == '-')
	})
	if end >= 0 {
		text = text[:end]
	}
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 3 {
		return ""
	}
	return r.cleanName(strings.Join(words, " "))
}

func (r *RuleExtractor) cleanName(raw string) string {
	var kept []string
	for _, w := range strings.Fields(raw) {
		w = strings.Trim(w, "'-")
		if w == "" {
			break
		}
		if _, stop := nameStopwords[strings.ToLower(w)]; stop {
			break
		}
		if _, isService := r.catalog.Lookup(w); isService {
			break
		}
		kept = append(kept, titleWord(w))
	}
	return strings.Join(kept, " ")
}

func titleWord(w string) string {
	if w == strings.ToLower(w) {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return w
}

func findGenericService(text string) string {
	m := genericServiceRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	words := strings.Fields(strings.ToLower(m[1]))
	if len(words) == 0 {
		return ""
	}
	if _, stop := genericServiceStopwords[words[len(words)-1]]; stop {
		return ""
	}
	return strings.Join(words, " ")
}
