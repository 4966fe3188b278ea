package importer

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   Cell
		want *float64
	}{
		{"thousands suffix", "189k", ptr(189000.0)},
		{"upper suffix", "25K", ptr(25000.0)},
		{"fractional suffix", "1.5k", ptr(1500.0)},
		{"zero text", "0", ptr(0.0)},
		{"zero number", 0.0, ptr(0.0)},
		{"plain number", 150.5, ptr(150.5)},
		{"grouped", "1,234.5", ptr(1234.5)},
		{"currency", "₮25,000", ptr(25000.0)},
		{"negative", "-20", ptr(-20.0)},
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"nil", nil, nil},
		{"text", "abc", nil},
		{"nan", math.NaN(), nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   Cell
		want *int
	}{
		{"text", "3", intPtr(3)},
		{"number", 2.0, intPtr(2)},
		{"truncated", 3.7, intPtr(3)},
		{"zero number", 0.0, intPtr(0)},
		{"trailing unit", "12 ш", intPtr(12)},
		{"empty", "", nil},
		{"text only", "abc", nil},
		{"nil", nil, nil},
		{"too large", 1e12, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuantity(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	restore := now
	now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.Local) }
	t.Cleanup(func() { now = restore })

	tests := []struct {
		name string
		in   Cell
		want string // "" means nil
	}{
		{"day month two digit year", "23-Nov-23", "2023-11-23"},
		{"pivot to 1900s", "5-Mar-72", "1972-03-05"},
		{"slash separated", "5/Mar/24", "2024-03-05"},
		{"four digit year", "1-Jan-2024", "2024-01-01"},
		{"current year", "23-Nov", "2025-11-23"},
		{"day first", "15/03/2024", "2024-03-15"},
		{"ambiguous day first", "05/04/2024", "2024-04-05"},
		{"month first fallback", "03/15/2024", "2024-03-15"},
		{"numeric two digit year", "15-03-24", "2024-03-15"},
		{"impossible day", "31/02/2024", ""},
		{"iso", "2024-3-5", "2024-03-05"},
		{"iso slash", "2024/12/01", "2024-12-01"},
		{"iso impossible day", "2024-02-31", ""},
		{"iso impossible month", "2024-13-01", ""},
		{"iso leap day", "2024-02-29", "2024-02-29"},
		{"day month impossible day", "31-Feb-24", ""},
		{"datetime", "2024-01-02T10:00:00", "2024-01-02"},
		{"long form", "Jan 2, 2024", "2024-01-02"},
		{"out of range year", "Nov 23, 1850", ""},
		{"garbage", "garbage", ""},
		{"empty", "", ""},
		{"excel serial", 45000.0, "2023-03-15"},
		{"excel serial with time", 45000.75, "2023-03-15"},
		{"excel first day", 1.0, "1900-01-01"},
		{"excel after leap bug", 61.0, "1900-03-01"},
		{"excel zero", 0.0, ""},
		{"excel negative", -5.0, ""},
		{"excel too large", 3e6, ""},
		{"time value", time.Date(2024, 7, 9, 15, 0, 0, 0, time.Local), "2024-07-09"},
		{"zero time", time.Time{}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExpandYear(t *testing.T) {
	assert.Equal(t, 2000, expandYear(0))
	assert.Equal(t, 2049, expandYear(49))
	assert.Equal(t, 1950, expandYear(50))
	assert.Equal(t, 1999, expandYear(99))
	assert.Equal(t, 2024, expandYear(2024))
}

func TestParseDelivery(t *testing.T) {
	tests := []struct {
		name     string
		in       Cell
		wantWith bool
		wantCode *float64
	}{
		{"shipped code", 7.0, true, ptr(7.0)},
		{"zero code", 0.0, false, ptr(0.0)},
		{"numeric text", "1", true, ptr(1.0)},
		{"mongolian yes", "тийм", true, ptr(1.0)},
		{"mongolian no upper", "ҮГҮЙ", false, ptr(0.0)},
		{"english yes", "Yes", true, ptr(1.0)},
		{"bool true", true, true, ptr(1.0)},
		{"bool false", false, false, ptr(0.0)},
		{"unknown word", "maybe", false, nil},
		{"empty", "", false, nil},
		{"nil", nil, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDelivery(tt.in)
			assert.Equal(t, tt.wantWith, got.With)
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestParseTally(t *testing.T) {
	assert.Equal(t, ptr(3.0), ParseTally(3.0))
	assert.Equal(t, ptr(0.0), ParseTally(0.0))
	assert.Equal(t, ptr(12.0), ParseTally(" 12 "))
	assert.Nil(t, ParseTally("none"))
	assert.Nil(t, ParseTally(nil))
}

func TestParseText(t *testing.T) {
	got := ParseText("  улаан өнгөтэй ")
	require.NotNil(t, got)
	assert.Equal(t, "улаан өнгөтэй", *got)

	assert.Nil(t, ParseText("   "))
	assert.Nil(t, ParseText(nil))
}

func TestCellText(t *testing.T) {
	assert.Equal(t, "99009900", CellText(99009900.0))
	assert.Equal(t, "10000000000", CellText(1e10))
	assert.Equal(t, "12.5", CellText(12.5))
	assert.Equal(t, "true", CellText(true))
	assert.Equal(t, "2024-01-02", CellText(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "X1", CellText(" X1 "))
	assert.Equal(t, "", CellText(nil))
	assert.Equal(t, "", CellText(math.Inf(1)))
}

func ptr[T any](v T) *T { return &v }
