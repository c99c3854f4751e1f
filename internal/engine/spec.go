package engine

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"scorecli/internal/scores"
	"scorecli/pkg/contracts/domain"
)

// Kind is the calculator a sheet uses.
type Kind string

const (
	KindGap   Kind = "gap"
	KindQuant Kind = "quant"
	KindStd   Kind = "std"
	KindS     Kind = "s"
	KindZ     Kind = "z"
)

// Source is the raw sheet a metric reads.
type Source string

const (
	SourcePrice  Source = "price"
	SourceVolume Source = "volume"
)

// Spec describes one score sheet.
type Spec struct {
	Kind       Kind   `json:"kind" yaml:"kind" validate:"required,oneof=gap quant std s z"`
	Sheet      string `json:"sheet" yaml:"sheet" validate:"required,max=31"`
	Source     Source `json:"source" yaml:"source" validate:"required,oneof=price volume"`
	Window     int    `json:"window,omitempty" yaml:"window" validate:"min=0,max=2000"`
	WindowStd  int    `json:"window_std,omitempty" yaml:"window_std" validate:"min=0,max=2000"`
	WindowMean int    `json:"window_mean,omitempty" yaml:"window_mean" validate:"min=0,max=2000"`
}

var validate = validator.New()

// NewSpec builds a spec, filling default windows and source for the kind.
func NewSpec(kind Kind, sheet string, window int) Spec {
	return Spec{Kind: kind, Sheet: sheet, Window: window}.WithDefaults()
}

// NewStdSpec builds a STD spec.
func NewStdSpec(sheet string, windowStd, windowMean int) Spec {
	return Spec{Kind: KindStd, Sheet: sheet, WindowStd: windowStd, WindowMean: windowMean}.WithDefaults()
}

// WithDefaults returns s with unset fields filled in.
func (s Spec) WithDefaults() Spec {
	s.Kind = Kind(strings.ToLower(string(s.Kind)))
	if s.Source == "" {
		s.Source = SourcePrice
		if s.Kind == KindQuant {
			s.Source = SourceVolume
		}
	}
	switch s.Kind {
	case KindGap:
		if s.Window == 0 {
			s.Window = scores.DefaultGapWindow
		}
	case KindQuant:
		if s.Window == 0 {
			s.Window = scores.DefaultQuantWindow
		}
	case KindStd:
		if s.WindowStd == 0 {
			s.WindowStd = scores.DefaultStdWindow
		}
		if s.WindowMean == 0 {
			s.WindowMean = scores.DefaultStdMean
		}
	}
	if s.Sheet == "" {
		s.Sheet = string(s.Kind)
		if s.Kind == KindS || s.Kind == KindZ {
			s.Sheet = fmt.Sprintf("%s%d", s.Kind, s.Window)
		}
	}
	return s
}

// Validate checks the spec after defaults are applied.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid metric %q: %w", s.Sheet, err)
	}
	switch s.Kind {
	case KindStd:
		if s.WindowStd < 2 || s.WindowMean < 1 {
			return fmt.Errorf("invalid metric %q: std needs window_std >= 2 and window_mean >= 1", s.Sheet)
		}
	case KindZ:
		if s.Window < 2 {
			return fmt.Errorf("invalid metric %q: z needs window >= 2", s.Sheet)
		}
	default:
		if s.Window < 1 {
			return fmt.Errorf("invalid metric %q: window must be positive", s.Sheet)
		}
	}
	return nil
}

// MinIndex is the first axis position at which the metric can be defined.
// It is also the index of the sheet's first column.
func (s Spec) MinIndex() int {
	if s.Kind == KindStd {
		return scores.StdMinIndex(s.WindowStd, s.WindowMean)
	}
	return s.Window - 1
}

// Integral reports whether the sheet holds whole numbers.
func (s Spec) Integral() bool {
	return s.Kind != KindStd
}

// String implements fmt.Stringer
func (s Spec) String() string {
	if s.Kind == KindStd {
		return fmt.Sprintf("%s(std=%d,mean=%d)", s.Sheet, s.WindowStd, s.WindowMean)
	}
	return fmt.Sprintf("%s(%s,%d)", s.Sheet, s.Kind, s.Window)
}

// Compute evaluates the metric for series at absolute axis position idx.
// GAP and QUANT see the contiguous window ending at idx, STD does its own
// windowing, S and Z see the whole history up to and including idx.
func (s Spec) Compute(series domain.Series, idx int) (float64, bool) {
	if idx < 0 || idx >= len(series) {
		return 0, false
	}
	switch s.Kind {
	case KindGap, KindQuant:
		start := idx + 1 - s.Window
		if start < 0 {
			return 0, false
		}
		window := series[start : idx+1]
		if s.Kind == KindGap {
			return scores.Gap(window, s.Window)
		}
		return scores.Quant(window, s.Window)
	case KindStd:
		return scores.Std(series, idx, s.WindowStd, s.WindowMean)
	case KindS:
		return scores.Position(series[:idx+1], s.Window)
	case KindZ:
		return scores.ZScore(series[:idx+1], s.Window)
	default:
		return 0, false
	}
}

// DefaultSpecs is the standard sheet set written into every workbook.
func DefaultSpecs() []Spec {
	return []Spec{
		NewSpec(KindS, "s20", 20),
		NewSpec(KindS, "s60", 60),
		NewSpec(KindS, "s120", 120),
		NewSpec(KindZ, "z20", 20),
		NewSpec(KindZ, "z60", 60),
		NewSpec(KindZ, "z120", 120),
		NewSpec(KindGap, "gap", scores.DefaultGapWindow),
		NewStdSpec("std", scores.DefaultStdWindow, scores.DefaultStdMean),
		NewSpec(KindQuant, "quant", scores.DefaultQuantWindow),
	}
}
