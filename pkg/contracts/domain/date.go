package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDate is returned when a header cannot be read as a calendar date.
var ErrMalformedDate = errors.New("malformed date")

const dateKeyLayout = "20060102"

// DateKey is a trading date encoded as YYYYMMDD. Its integer order is calendar order.
type DateKey int

// String returns the 8-digit form used in sheet headers.
func (d DateKey) String() string {
	return fmt.Sprintf("%08d", int(d))
}

// Time returns the date at midnight UTC.
func (d DateKey) Time() time.Time {
	t, _ := time.Parse(dateKeyLayout, d.String())
	return t
}

// DateKeyFromTime builds a key from the calendar day of t.
func DateKeyFromTime(t time.Time) DateKey {
	return DateKey(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// ParseDateKey normalises any header representation of a date.
// Integers, whole floats, 8-digit strings (optionally with a ".0" suffix),
// ISO dates and time.Time values are accepted.
func ParseDateKey(v any) (DateKey, error) {
	switch x := v.(type) {
	case DateKey:
		return validateDateKey(int(x))
	case int:
		return validateDateKey(x)
	case int64:
		return validateDateKey(int(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: %v", ErrMalformedDate, x)
		}
		return validateDateKey(int(x))
	case time.Time:
		if x.IsZero() {
			return 0, fmt.Errorf("%w: zero time", ErrMalformedDate)
		}
		return DateKeyFromTime(x), nil
	case string:
		return parseDateString(x)
	case nil:
		return 0, fmt.Errorf("%w: empty", ErrMalformedDate)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrMalformedDate, v)
	}
}

func parseDateString(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformedDate)
	}

	if len(s) == 8 && isDigits(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		return validateDateKey(n)
	}

	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		t, err := time.Parse("2006-01-02", s[:10])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedDate, s)
		}
		return DateKeyFromTime(t), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

func validateDateKey(n int) (DateKey, error) {
	if n < 10000101 || n > 99991231 {
		return 0, fmt.Errorf("%w: %d", ErrMalformedDate, n)
	}
	key := DateKey(n)
	t, err := time.Parse(dateKeyLayout, key.String())
	if err != nil || DateKeyFromTime(t) != key {
		return 0, fmt.Errorf("%w: %d", ErrMalformedDate, n)
	}
	return key, nil
}

// DateAxis is the ordered, duplicate-free list of dates of one raw sheet.
type DateAxis []DateKey

// Index returns the position of date on the axis.
func (a DateAxis) Index(date DateKey) (int, bool) {
	i := sort.Search(len(a), func(i int) bool { return a[i] >= date })
	if i < len(a) && a[i] == date {
		return i, true
	}
	return 0, false
}

// Last returns the most recent date, or false for an empty axis.
func (a DateAxis) Last() (DateKey, bool) {
	if len(a) == 0 {
		return 0, false
	}
	return a[len(a)-1], true
}

// IsSorted reports whether dates are strictly increasing.
func (a DateAxis) IsSorted() bool {
	for i := 1; i < len(a); i++ {
		if a[i] <= a[i-1] {
			return false
		}
	}
	return true
}

// BuildDateAxis reads date headers in sheet order. Headers that are not dates
// are skipped and repeated dates keep their first column. The returned columns
// slice holds, for each axis entry, the index into headers it came from.
// The axis is in sheet order; RawTable.Normalize sorts it.
func BuildDateAxis(headers []string) (DateAxis, []int) {
	axis := make(DateAxis, 0, len(headers))
	columns := make([]int, 0, len(headers))
	seen := make(map[DateKey]struct{}, len(headers))

	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		key, err := ParseDateKey(h)
		if err != nil {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		axis = append(axis, key)
		columns = append(columns, i)
	}
	return axis, columns
}
