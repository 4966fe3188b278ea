package importer

// coerce.go turns raw spreadsheet cells into typed order values.
//
// Every coercer accepts any Cell (nil, string, float64, bool, time.Time) and
// returns nil rather than an error when the value cannot be interpreted.
// Whether nil is acceptable is decided later by row validation.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot splits two-digit years: below it is 20xx, otherwise 19xx.
const TwoDigitYearPivot = 50

// Excel serial bounds. Serials below excelLeapBugSerial predate the
// nonexistent 1900-02-29 that Excel counts, so they are shifted by one day.
const (
	excelLeapBugSerial = 60
	excelMaxSerial     = 2958465 // 9999-12-31
)

var (
	leadingFloatRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingIntRe   = regexp.MustCompile(`^[+-]?\d+`)
	priceJunkRe    = regexp.MustCompile(`[^\d.\-]`)

	dayMonthRe = regexp.MustCompile(`^(\d{1,2})[-/](\w{3})(?:[-/](\d{2,4}))?$`)
	numericDMY = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	isoDateRe  = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})$`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// freeTextLayouts are tried last. Layouts carrying a zone are converted to
// local time before the calendar date is taken.
var freeTextLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02 15:04:05", false},
	{"2006/01/02 15:04:05", false},
	{"2006.01.02", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"Jan 2 2006", false},
	{"January 2 2006", false},
	{"2 Jan 2006", false},
	{"2 January 2006", false},
	{"Mon Jan 2 2006", false},
	{"Mon, 02 Jan 2006 15:04:05 MST", true},
}

// now is replaced in tests that depend on the current year.
var now = time.Now

// ParsePrice parses a price cell. Numbers are used as-is, "189k" means
// 189000, and other text is stripped to digits, '.' and '-' before parsing.
func ParsePrice(v Cell) *float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return &t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
			if f, ok := leadingFloat(s[:len(s)-1]); ok {
				f *= 1000
				return &f
			}
		}
		if f, ok := leadingFloat(priceJunkRe.ReplaceAllString(s, "")); ok {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// ParseQuantity parses a base-10 integer count. A numeric 0 is kept; empty
// cells and text without leading digits give nil.
func ParseQuantity(v Cell) *int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.Abs(t) > math.MaxInt32 {
			return nil
		}
		n := int(math.Trunc(t))
		return &n
	case string:
		m := leadingIntRe.FindString(strings.TrimSpace(t))
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// ParseDate returns the cell as a YYYY-MM-DD string, or nil.
//
// Accepted input, in priority order: time values; "23-Nov" / "23-Nov-24"
// style day-month text; numeric d/m/y triples (day-first, then month-first);
// ISO year-first dates; a set of free-text layouts; Excel serial numbers.
func ParseDate(v Cell) *string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return formatDate(t)
	case float64:
		return excelSerialDate(t)
	case string:
		return parseDateText(strings.TrimSpace(t))
	default:
		return nil
	}
}

func parseDateText(s string) *string {
	if s == "" {
		return nil
	}

	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthAbbrev[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year := now().Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
				year = expandYear(year)
			}
			d, _ := exactDate(year, int(month), day)
			return d
		}
	}

	if m := numericDMY.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		year := expandYear(y)

		if d, ok := exactDate(year, b, a); ok {
			return d
		}
		if d, ok := exactDate(year, a, b); ok {
			return d
		}
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		d, _ := exactDate(year, month, day)
		return d
	}

	for _, l := range freeTextLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.zoned {
			t = t.In(time.Local)
		}
		if t.Year() > 1900 && t.Year() < 2100 {
			return formatDate(t)
		}
	}

	return nil
}

// exactDate builds a date only if the components survive normalization
// unchanged, so 31/02 is rejected instead of rolling into March.
func exactDate(year, month, day int) (*string, bool) {
	if month < 1 || month > 12 || day < 1 {
		return nil, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Day() != day || int(t.Month()) != month {
		return nil, false
	}
	return formatDate(t), true
}

// excelSerialDate converts a day count from the 1899-12-30 epoch using
// local calendar arithmetic.
func excelSerialDate(serial float64) *string {
	if math.IsNaN(serial) || serial < 1 || serial > excelMaxSerial {
		return nil
	}
	days := int(math.Floor(serial))
	if days < excelLeapBugSerial {
		days++
	}
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.Local)
	return formatDate(epoch.AddDate(0, 0, days))
}

func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < TwoDigitYearPivot {
		return 2000 + y
	}
	return 1900 + y
}

func formatDate(t time.Time) *string {
	s := fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	return &s
}

// Delivery is the coerced "with delivery" column. Code keeps the numeric
// status written in the sheet (1 received, 7 shipped, ...); a code of 0 is
// distinct from no code at all.
type Delivery struct {
	With bool
	Code *float64
}

var deliveryWords = map[string]float64{
	"тийм":  1,
	"yes":   1,
	"true":  1,
	"үгүй":  0,
	"no":    0,
	"false": 0,
}

// ParseDelivery reads numeric delivery codes or yes/no words.
func ParseDelivery(v Cell) Delivery {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return Delivery{}
		}
		return Delivery{With: t != 0, Code: &t}
	case bool:
		code := 0.0
		if t {
			code = 1
		}
		return Delivery{With: t, Code: &code}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Delivery{}
		}
		if f, ok := leadingFloat(s); ok {
			return Delivery{With: f != 0, Code: &f}
		}
		if code, ok := deliveryWords[strings.ToLower(s)]; ok {
			return Delivery{With: code != 0, Code: &code}
		}
		return Delivery{}
	default:
		return Delivery{}
	}
}

// ParseTally reads the numeric tally marker of order sheets.
func ParseTally(v Cell) *float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return nil
		}
		return &t
	case string:
		if f, ok := leadingFloat(strings.TrimSpace(t)); ok {
			return &f
		}
	}
	return nil
}

// ParseText trims free text; blank text is nil.
func ParseText(v Cell) *string {
	s := CellText(v)
	if s == "" {
		return nil
	}
	return &s
}

// CellText renders a cell as trimmed text. Whole numbers print without an
// exponent so numeric phone cells keep every digit.
func CellText(v Cell) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// leadingFloat parses the longest numeric prefix of s, ignoring trailing text.
func leadingFloat(s string) (float64, bool) {
	m := leadingFloatRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
