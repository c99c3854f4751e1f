package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedValue is returned when a raw cell is present but not numeric.
var ErrMalformedValue = errors.New("malformed value")

// Observation is one raw reading. The zero value is undefined.
type Observation struct {
	Value   float64
	Defined bool
}

// Undefined is a missing or unreadable reading.
var Undefined = Observation{}

// Value returns a defined observation.
func Value(v float64) Observation {
	return Observation{Value: v, Defined: true}
}

// ParseObservation reads a raw cell. Blank cells are undefined without error;
// non-numeric cells are undefined and reported with ErrMalformedValue.
func ParseObservation(raw string) (Observation, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Undefined, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined, fmt.Errorf("%w: %q", ErrMalformedValue, raw)
	}
	return Value(v), nil
}

// Series is aligned one-to-one with a DateAxis.
type Series []Observation

// Values builds a fully defined series, mostly for tests and fixtures.
func Values(vs ...float64) Series {
	s := make(Series, len(vs))
	for i, v := range vs {
		s[i] = Value(v)
	}
	return s
}

// EntitySeries is one raw row: the entity and its readings.
type EntitySeries struct {
	Entity Entity
	Series Series
}

// RawTable is a raw price or volume sheet after parsing.
type RawTable struct {
	Axis     DateAxis
	Entities []EntitySeries
}

// Normalize sorts the axis into calendar order, drops repeated dates (first
// occurrence wins) and permutes every series to stay aligned. Series shorter
// than the axis are padded with undefined readings.
func (t *RawTable) Normalize() {
	order := make([]int, len(t.Axis))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return t.Axis[order[a]] < t.Axis[order[b]] })

	keep := make([]int, 0, len(order))
	for _, idx := range order {
		if len(keep) > 0 && t.Axis[keep[len(keep)-1]] == t.Axis[idx] {
			continue
		}
		keep = append(keep, idx)
	}

	axis := make(DateAxis, len(keep))
	for i, idx := range keep {
		axis[i] = t.Axis[idx]
	}

	for e := range t.Entities {
		src := t.Entities[e].Series
		dst := make(Series, len(keep))
		for i, idx := range keep {
			if idx < len(src) {
				dst[i] = src[idx]
			}
		}
		t.Entities[e].Series = dst
	}
	t.Axis = axis
}

// Entity returns the row for code.
func (t *RawTable) Entity(code string) (EntitySeries, bool) {
	for _, e := range t.Entities {
		if e.Entity.Code == code {
			return e, true
		}
	}
	return EntitySeries{}, false
}
