package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	cases := map[string]struct {
		in   string
		want time.Time
		ok   bool
	}{
		"plain":        {"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		"padded":       {" 2024-03-05 ", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		"rfc3339":      {"2024-03-05T14:30:00+08:00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		"empty":        {"", time.Time{}, false},
		"garbage":      {"yesterday", time.Time{}, false},
		"bad month":    {"2024-13-01", time.Time{}, false},
		"slash layout": {"2024/03/05", time.Time{}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseDate(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, tc.want.Equal(got), "got %v", got)
			if ok {
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestDayOfKeepsLocalCalendarDay(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	late := time.Date(2024, 3, 5, 23, 59, 0, 0, shanghai)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DayOf(late))
}
