package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	relativeInRe  = regexp.MustCompile(`(?i)\bin\s+(?:(\d{1,3})\s*(minutes?|mins?|hours?|hrs?)|(?:an|one)\s+hour|half\s+an\s+hour)\b`)
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2}))?`)
	monthDayRe    = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	dayMonthRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b(?:,?\s+(\d{4})\b)?`)
	slashDateRe   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	ordinalDayRe  = regexp.MustCompile(`(?i)\bthe\s+(\d{1,2})(?:st|nd|rd|th)\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(?:(next|this|on)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`)
	relativeDayRe = regexp.MustCompile(`(?i)\b(day after tomorrow|tomorrow|today|tonight)\b`)

	meridiemRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?\s?m\b\.?`)
	colonClockRe = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	namedClockRe = regexp.MustCompile(`(?i)\b(noon|midday|midnight)\b`)
	bareClockRe  = regexp.MustCompile(`(?i)(?:\b(?:at|around|by)|@)\s*(\d{1,2})(?:\s*o'?clock)?\b`)
	periodRe     = regexp.MustCompile(`(?i)\b(morning|afternoon|evening|tonight|night|lunchtime)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type clock struct {
	hour     int
	minute   int
	explicit bool
}

type dateMention struct {
	pos    int
	day    time.Time
	phrase string
}

type clockMention struct {
	pos    int
	clock  clock
	phrase string
}

// temporal is what a single turn says about when.
type temporal struct {
	date    *time.Time
	clock   *clock
	period  string
	phrases []string
	// scrubbed is the input with every date and clock span blanked out, so
	// later digit scans do not mistake them for phone numbers.
	scrubbed string
}

func (t temporal) empty() bool {
	return t.date == nil && t.clock == nil && t.period == ""
}

type phrase struct {
	pos  int
	text string
}

func parseTemporal(text string, now time.Time) temporal {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	work := []byte(text)

	var (
		dates   []dateMention
		clocks  []clockMention
		phrases []phrase
	)
	blank := func(start, end int) {
		for i := start; i < end; i++ {
			work[i] = ' '
		}
	}
	scan := func(re *regexp.Regexp, keep bool, fn func(m []string, pos int) bool) {
		for _, idx := range re.FindAllSubmatchIndex(work, -1) {
			m := make([]string, len(idx)/2)
			for g := range m {
				if idx[2*g] >= 0 {
					m[g] = string(work[idx[2*g]:idx[2*g+1]])
				}
			}
			if !fn(m, idx[0]) {
				continue
			}
			phrases = append(phrases, phrase{pos: idx[0], text: strings.TrimSpace(text[idx[0]:idx[1]])})
			if !keep {
				blank(idx[0], idx[1])
			}
		}
	}

	scan(relativeInRe, false, func(m []string, pos int) bool {
		var d time.Duration
		switch {
		case m[1] != "":
			n, _ := strconv.Atoi(m[1])
			unit := time.Minute
			if strings.HasPrefix(strings.ToLower(m[2]), "h") {
				unit = time.Hour
			}
			d = time.Duration(n) * unit
		case strings.Contains(strings.ToLower(m[0]), "half"):
			d = 30 * time.Minute
		default:
			d = time.Hour
		}
		at := now.Add(d).Truncate(time.Minute)
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
		dates = append(dates, dateMention{pos: pos, day: day})
		clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: at.Hour(), minute: at.Minute(), explicit: true}})
		return true
	})

	// clock spans go first so "Oct 16:00" is not read as a date
	scan(meridiemRe, false, func(m []string, pos int) bool {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 {
			return false
		}
		pm := strings.EqualFold(m[3], "p")
		switch {
		case pm && h < 12:
			h += 12
		case !pm && h == 12:
			h = 0
		}
		clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: h, minute: mi, explicit: true}})
		return true
	})

	scan(colonClockRe, false, func(m []string, pos int) bool {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: h, minute: mi, explicit: h == 0 || h > 12}})
		return true
	})

	scan(namedClockRe, false, func(m []string, pos int) bool {
		h := 12
		if strings.EqualFold(m[1], "midnight") {
			h = 0
		}
		clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: h, explicit: true}})
		return true
	})

	scan(isoDateRe, false, func(m []string, pos int) bool {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		day, ok := dateIn(y, time.Month(mo), d, loc)
		if !ok {
			return false
		}
		dates = append(dates, dateMention{pos: pos, day: day})
		if m[4] != "" {
			h, _ := strconv.Atoi(m[4])
			mi, _ := strconv.Atoi(m[5])
			if h < 24 && mi < 60 {
				clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: h, minute: mi, explicit: true}})
			}
		}
		return true
	})

	monthDay := func(monthName, dayText, yearText string, pos int) bool {
		month, ok := monthsByPrefix[strings.ToLower(monthName)[:3]]
		if !ok {
			return false
		}
		d, _ := strconv.Atoi(dayText)
		day, ok := calendarDay(today, yearText, month, d)
		if !ok {
			return false
		}
		dates = append(dates, dateMention{pos: pos, day: day})
		return true
	}
	scan(monthDayRe, false, func(m []string, pos int) bool { return monthDay(m[1], m[2], m[3], pos) })
	scan(dayMonthRe, false, func(m []string, pos int) bool { return monthDay(m[2], m[1], m[3], pos) })

	scan(slashDateRe, false, func(m []string, pos int) bool {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return false
		}
		day, ok := calendarDay(today, m[3], time.Month(mo), d)
		if !ok {
			return false
		}
		dates = append(dates, dateMention{pos: pos, day: day})
		return true
	})

	scan(ordinalDayRe, false, func(m []string, pos int) bool {
		d, _ := strconv.Atoi(m[1])
		day, ok := dateIn(today.Year(), today.Month(), d, loc)
		if ok && day.Before(today) {
			next := today.AddDate(0, 1, 0)
			day, ok = dateIn(next.Year(), next.Month(), d, loc)
		}
		if !ok {
			return false
		}
		dates = append(dates, dateMention{pos: pos, day: day})
		return true
	})

	scan(weekdayRe, false, func(m []string, pos int) bool {
		target := weekdays[strings.ToLower(m[2])]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 && !strings.EqualFold(m[1], "this") {
			ahead = 7
		}
		dates = append(dates, dateMention{pos: pos, day: today.AddDate(0, 0, ahead)})
		return true
	})

	// kept in place so the period scan still sees "tonight"
	scan(relativeDayRe, true, func(m []string, pos int) bool {
		offset := 0
		switch strings.ToLower(m[1]) {
		case "tomorrow":
			offset = 1
		case "day after tomorrow":
			offset = 2
		}
		dates = append(dates, dateMention{pos: pos, day: today.AddDate(0, 0, offset)})
		return true
	})

	scan(bareClockRe, false, func(m []string, pos int) bool {
		h, _ := strconv.Atoi(m[1])
		if h > 23 {
			return false
		}
		clocks = append(clocks, clockMention{pos: pos, clock: clock{hour: h, explicit: h == 0 || h > 12}})
		return true
	})

	var out temporal
	if len(dates) > 0 {
		latest := dates[0]
		for _, d := range dates[1:] {
			if d.pos >= latest.pos {
				latest = d
			}
		}
		day := latest.day
		out.date = &day
	}
	if len(clocks) > 0 {
		latest := clocks[0]
		for _, c := range clocks[1:] {
			if c.pos >= latest.pos {
				latest = c
			}
		}
		c := latest.clock
		out.clock = &c
	}
	if ms := periodRe.FindAllStringSubmatchIndex(string(work), -1); len(ms) > 0 {
		last := ms[len(ms)-1]
		out.period = strings.ToLower(string(work[last[2]:last[3]]))
		phrases = append(phrases, phrase{pos: last[0], text: text[last[0]:last[1]]})
	}

	sort.SliceStable(phrases, func(i, j int) bool { return phrases[i].pos < phrases[j].pos })
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		key := strings.ToLower(p.text)
		if _, dup := seen[key]; dup || p.text == "" {
			continue
		}
		seen[key] = struct{}{}
		out.phrases = append(out.phrases, p.text)
	}
	out.scrubbed = string(work)
	return out
}

func dateIn(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return t, t.Day() == day && t.Month() == month
}

// calendarDay builds a date from month and day. Without an explicit year the
// next occurrence on or after today is used.
func calendarDay(today time.Time, yearText string, month time.Month, day int) (time.Time, bool) {
	if yearText != "" {
		y, _ := strconv.Atoi(yearText)
		if y < 100 {
			y += 2000
		}
		return dateIn(y, month, day, today.Location())
	}
	t, ok := dateIn(today.Year(), month, day, today.Location())
	if ok && t.Before(today) {
		t, ok = dateIn(today.Year()+1, month, day, today.Location())
	}
	return t, ok
}

// inferHour places an hour given without am/pm. A stated part of the day
// decides when present; otherwise 1-7 read as afternoon and 8-12 as stated.
func inferHour(c clock, period string) int {
	if c.explicit {
		return c.hour
	}
	switch period {
	case "afternoon", "evening", "tonight", "night":
		if c.hour < 12 {
			return c.hour + 12
		}
		return c.hour
	case "morning":
		return c.hour
	case "lunchtime":
		if c.hour < 6 {
			return c.hour + 12
		}
		return c.hour
	}
	if c.hour >= 1 && c.hour <= 7 {
		return c.hour + 12
	}
	return c.hour
}

// whenState accumulates temporal mentions across user turns. A later date
// replaces the date and a later clock replaces the clock. A later part of day
// re-reads an earlier bare hour but discards an earlier am/pm time.
type whenState struct {
	date       *time.Time
	clock      *clock
	period     string
	expression string
}

func (s *whenState) merge(t temporal) {
	if t.empty() {
		return
	}
	if t.date != nil {
		s.date = t.date
	}
	if t.period != "" {
		s.period = t.period
		if t.clock == nil && s.clock != nil && s.clock.explicit {
			s.clock = nil
		}
	}
	if t.clock != nil {
		s.clock = t.clock
	}
	s.expression = strings.Join(t.phrases, " ")
}

func (s whenState) apply(f *Fields, now time.Time) {
	f.StartTime = nil
	f.ClockOnly = false
	f.Day = nil
	f.TimeExpression = ""
	if s.date == nil && s.clock == nil && s.period == "" {
		return
	}
	if s.date != nil {
		day := *s.date
		f.Day = &day
	}
	if s.clock == nil {
		f.TimeExpression = s.expression
		return
	}

	hour := inferHour(*s.clock, s.period)
	var start time.Time
	if s.date != nil {
		start = time.Date(s.date.Year(), s.date.Month(), s.date.Day(), hour, s.clock.minute, 0, 0, now.Location())
	} else {
		start = time.Date(now.Year(), now.Month(), now.Day(), hour, s.clock.minute, 0, 0, now.Location())
		if !start.After(now) {
			start = start.AddDate(0, 0, 1)
		}
		f.ClockOnly = true
	}
	f.StartTime = &start
}
