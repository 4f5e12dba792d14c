package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	separatorSpaceRe = regexp.MustCompile(`\s*([-./])\s*`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	compactDateRe    = regexp.MustCompile(`^\d{8}$`)
	longDigitsRe     = regexp.MustCompile(`^\d{9,}$`)
	isoDateRe        = regexp.MustCompile(`^\d{4}[-/.]\d{2}[-/.]\d{2}$`)
	dayFirstDateRe   = regexp.MustCompile(`^(\d{2})[-/.](\d{2})[-/.](\d{4})$`)
	dayMonthNameRe   = regexp.MustCompile(`^(\d{2})[-/.]([A-Za-z]{3})[-/.](\d{4})$`)
	ordinalRe        = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dateSeparatorRe  = regexp.MustCompile(`[-./]`)
)

// NormalizeDate converts a human or LLM supplied date to YYYYMMDD. It returns
// "" when the value cannot be parsed.
func NormalizeDate(raw string) string {
	rawValue := strings.TrimSpace(raw)
	if rawValue == "" {
		return ""
	}

	value := separatorSpaceRe.ReplaceAllString(rawValue, "$1")
	value = strings.TrimSpace(multiSpaceRe.ReplaceAllString(value, " "))

	switch {
	case compactDateRe.MatchString(value):
		return value
	case isoDateRe.MatchString(value):
		return dateSeparatorRe.ReplaceAllString(value, "")
	}

	if m := dayFirstDateRe.FindStringSubmatch(value); m != nil {
		return m[3] + m[2] + m[1]
	}

	if m := dayMonthNameRe.FindStringSubmatch(value); m != nil {
		t, err := time.Parse("02-Jan-2006", m[1]+"-"+m[2]+"-"+m[3])
		if err != nil {
			return ""
		}
		return formatYYYYMMDD(t)
	}

	if t, ok := parseFreeText(ordinalRe.ReplaceAllString(value, "$1")); ok {
		return formatYYYYMMDD(t)
	}

	if compactDateRe.MatchString(rawValue) {
		return rawValue
	}
	return ""
}

// parseFreeText must not panic; dateparse does on some malformed inputs.
func parseFreeText(value string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	// Long digit runs read as unix timestamps.
	if longDigitsRe.MatchString(value) {
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	// Without a year dateparse yields year 0.
	if parsed.Year() == 0 {
		return time.Time{}, false
	}
	return parsed, true
}

func formatYYYYMMDD(t time.Time) string {
	return fmt.Sprintf("%04d%02d%02d", t.Year(), int(t.Month()), t.Day())
}
