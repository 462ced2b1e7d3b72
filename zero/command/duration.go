package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
)

var (
	digitRunRe = regexp.MustCompile(`\d+`)
	articleRe  = regexp.MustCompile(`(?i)\b(?:a|an|one)\b`)
	unitRe     = regexp.MustCompile(`(?i)\b(minute|min|hour|hr|day|week)s?\b`)
)

var unitMinutes = map[string]int{
	"minute": 1,
	"min":    1,
	"hour":   60,
	"hr":     60,
	"day":    24 * 60,
	"week":   7 * 24 * 60,
}

// MaxMinutes bounds any parsed duration to four weeks.
const MaxMinutes = 4 * 7 * 24 * 60

// ParseMinutes normalizes a relative duration phrase to whole minutes.
//
// "a minute" is 1, "5 minutes" is 5, "an hour" is 60, "2 hours" is 120.
// The first digit run is the count, a bare indefinite article counts as one.
// A phrase without a unit is read as minutes. Amounts over MaxMinutes are rejected.
func ParseMinutes(phrase string) (int, error) {
	const op = "parse duration"

	count := 0
	switch digits := digitRunRe.FindString(phrase); {
	case digits != "":
		n, err := strconv.Atoi(digits)
		if err != nil {
			return 0, zero.E(zero.KindExtractionFailure, op, err)
		}
		count = n
	case articleRe.MatchString(phrase):
		count = 1
	default:
		return 0, zero.Errorf(zero.KindExtractionFailure, op, "no amount in %q", phrase)
	}

	scale := 1
	if m := unitRe.FindStringSubmatch(phrase); m != nil {
		scale = unitMinutes[strings.ToLower(m[1])]
	}

	if count > MaxMinutes/scale {
		return 0, zero.Errorf(zero.KindExtractionFailure, op, "%q is longer than %d minutes", phrase, MaxMinutes)
	}
	return count * scale, nil
}

// ParseDuration is ParseMinutes as a time.Duration.
func ParseDuration(phrase string) (time.Duration, error) {
	minutes, err := ParseMinutes(phrase)
	if err != nil {
		return 0, err
	}
	return time.Duration(minutes) * time.Minute, nil
}

// PeriodKind selects how a Period is anchored.
type PeriodKind int

const (
	PeriodToday PeriodKind = iota
	PeriodTomorrow
	PeriodSpan // from now for Span
)

// Period is the normalized time window of a GetNextEvents request.
type Period struct {
	Label string
	Kind  PeriodKind
	Span  time.Duration
}

// DefaultPeriod is used when no period is given.
var DefaultPeriod = Period{Label: "week", Kind: PeriodSpan, Span: 7 * 24 * time.Hour}

// ParsePeriod normalizes "today", "tomorrow", "this week", "month" or a
// relative duration such as "3 days" into a Period.
func ParsePeriod(phrase string) (Period, error) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	p = strings.TrimPrefix(p, "this ")
	p = strings.TrimPrefix(p, "next ")

	switch p {
	case "":
		return DefaultPeriod, nil
	case "today", "day":
		return Period{Label: "today", Kind: PeriodToday}, nil
	case "tomorrow":
		return Period{Label: "tomorrow", Kind: PeriodTomorrow}, nil
	case "week":
		return DefaultPeriod, nil
	case "month":
		return Period{Label: "month", Kind: PeriodSpan, Span: 30 * 24 * time.Hour}, nil
	}

	d, err := ParseDuration(p)
	if err != nil {
		return Period{}, zero.Errorf(zero.KindExtractionFailure, "parse period", "unknown period %q", phrase)
	}
	return Period{Label: p, Kind: PeriodSpan, Span: d}, nil
}

// Bounds returns the window of the period relative to now.
func (p Period) Bounds(now time.Time) (from, to time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p.Kind {
	case PeriodToday:
		return now, midnight.AddDate(0, 0, 1)
	case PeriodTomorrow:
		return midnight.AddDate(0, 0, 1), midnight.AddDate(0, 0, 2)
	default:
		return now, now.Add(p.Span)
	}
}
