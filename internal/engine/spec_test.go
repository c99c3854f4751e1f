package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecDefaults(t *testing.T) {
	tests := []struct {
		name       string
		spec       Spec
		wantSource Source
		wantMin    int
		integral   bool
	}{
		{"gap", NewSpec(KindGap, "", 0), SourcePrice, 19, true},
		{"quant reads volume", NewSpec(KindQuant, "", 0), SourceVolume, 59, true},
		{"std", NewStdSpec("", 0, 0), SourcePrice, 38, false},
		{"s120", NewSpec(KindS, "", 120), SourcePrice, 119, true},
		{"upper case kind", Spec{Kind: "Z", Window: 60}.WithDefaults(), SourcePrice, 59, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.spec.Validate())
			assert.Equal(t, tt.wantSource, tt.spec.Source)
			assert.Equal(t, tt.wantMin, tt.spec.MinIndex())
			assert.Equal(t, tt.integral, tt.spec.Integral())
		})
	}

	assert.Equal(t, "s120", NewSpec(KindS, "", 120).Sheet)
	assert.Equal(t, "gap", NewSpec(KindGap, "", 0).Sheet)
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"unknown kind", Spec{Kind: "rsi", Sheet: "rsi", Source: SourcePrice, Window: 14}},
		{"z window of one", Spec{Kind: KindZ, Sheet: "z1", Source: SourcePrice, Window: 1}},
		{"s without window", Spec{Kind: KindS, Sheet: "s", Source: SourcePrice}},
		{"std without deviation window", Spec{Kind: KindStd, Sheet: "std", Source: SourcePrice, WindowStd: 1, WindowMean: 20}},
		{"sheet name too long", Spec{Kind: KindGap, Sheet: "a-sheet-name-longer-than-excel-allows", Source: SourcePrice, Window: 20}},
		{"bad source", Spec{Kind: KindGap, Sheet: "gap", Source: "close", Window: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.spec.Validate())
		})
	}
}

func TestDefaultSpecs(t *testing.T) {
	specs := DefaultSpecs()

	var sheets []string
	for _, s := range specs {
		assert.NoError(t, s.Validate(), s.String())
		sheets = append(sheets, s.Sheet)
	}
	assert.Equal(t, []string{"s20", "s60", "s120", "z20", "z60", "z120", "gap", "std", "quant"}, sheets)
}
