package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scorecli/internal/errors"
	"scorecli/internal/sheet"
	"scorecli/internal/shared/testutil"
	"scorecli/pkg/contracts/domain"
)

func axisOf(n int) domain.DateAxis {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	axis := make(domain.DateAxis, n)
	for i := range axis {
		axis[i] = domain.DateKeyFromTime(start.AddDate(0, 0, i))
	}
	return axis
}

// wiggle is a deterministic, non-flat price path per entity.
func wiggle(n, seed int) domain.Series {
	s := make(domain.Series, n)
	for j := range s {
		s[j] = domain.Value(100 + float64((j*7+seed*3)%11))
	}
	return s
}

func rawTable(n int, codes ...string) domain.RawTable {
	raw := domain.RawTable{Axis: axisOf(n)}
	for i, c := range codes {
		raw.Entities = append(raw.Entities, domain.EntitySeries{
			Entity: domain.Entity{Code: c, Name: "name-" + c},
			Series: wiggle(n, i),
		})
	}
	return raw
}

type snapshot map[string]domain.Series

func snap(tbl *sheet.Table) snapshot {
	out := snapshot{}
	for _, r := range tbl.Rows() {
		out[r.Code] = tbl.RowValues(r.Handle)
	}
	return out
}

func defined(s domain.Series) int {
	n := 0
	for _, o := range s {
		if o.Defined {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *testutil.BufferedSlogHandler) {
	logger, logs := testutil.NewTestLogger(t)
	return New(cfg, logger), logs
}

func TestUpdate_EndToEndBackfill(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	spec := NewSpec(KindGap, "gap", 20)
	tbl := sheet.NewTable("gap")

	res, err := eng.Update(ctx, spec, rawTable(25, "A", "B", "C"), tbl)
	require.NoError(t, err)

	axis := axisOf(25)
	assert.Equal(t, []domain.DateKey(axis[19:]), tbl.Columns())
	assert.Equal(t, 6, res.NewColumnsWritten)
	assert.Equal(t, 0, res.NewRowsBackfilled)
	assert.Equal(t, 18, res.CellsWritten)
	assert.Equal(t, axis[24], res.LastColumn)

	before := snap(tbl)
	for _, s := range before {
		assert.Equal(t, 6, defined(s))
	}

	res, err = eng.Update(ctx, spec, rawTable(25, "A", "B", "C", "D"), tbl)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewColumnsWritten)
	assert.Equal(t, 1, res.NewRowsBackfilled)
	assert.Equal(t, 6, res.CellsWritten)

	after := snap(tbl)
	assert.Equal(t, 6, defined(after["D"]))
	for _, code := range []string{"A", "B", "C"} {
		assert.Equal(t, before[code], after[code], "row %s changed", code)
	}
}

func TestUpdate_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("z20")
	spec := NewSpec(KindZ, "z20", 20)
	raw := rawTable(30, "A", "B")

	_, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	first := snap(tbl)

	res, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, 0, res.NewRowsBackfilled)
	assert.Equal(t, first, snap(tbl))
}

func TestUpdate_WriteOnce(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("gap")
	spec := NewSpec(KindGap, "gap", 20)

	raw := rawTable(21, "A")
	_, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	before := snap(tbl)

	// restated history plus one new day
	changed := rawTable(22, "A")
	for j := range changed.Entities[0].Series {
		changed.Entities[0].Series[j] = domain.Value(500 + float64(j))
	}
	res, err := eng.Update(ctx, spec, changed, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewColumnsWritten)

	after := snap(tbl)
	assert.Equal(t, before["A"], after["A"][:2])
	assert.True(t, after["A"][2].Defined)
}

func TestUpdate_InsufficientHistory(t *testing.T) {
	eng, logs := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("quant")

	_, err := eng.Update(context.Background(), NewSpec(KindQuant, "quant", 60), rawTable(59, "A"), tbl)

	assert.ErrorIs(t, err, apperrors.ErrInsufficientHistory)
	assert.True(t, apperrors.IsSkip(err))
	assert.Empty(t, tbl.Columns())
	assert.Empty(t, tbl.Rows())
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "not enough dates")
}

func TestUpdate_StdStartsAtMinIndex(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("std")

	res, err := eng.Update(context.Background(), NewStdSpec("std", 20, 20), rawTable(40, "A"), tbl)
	require.NoError(t, err)

	axis := axisOf(40)
	assert.Equal(t, []domain.DateKey{axis[38], axis[39]}, tbl.Columns())
	assert.Equal(t, 2, res.CellsWritten)
}

func TestUpdate_GapsLeaveCellsEmptyForRetry(t *testing.T) {
	ctx := context.Background()
	spec := NewSpec(KindGap, "gap", 20)

	raw := rawTable(22, "A", "B")
	raw.Entities[1].Series[21] = domain.Undefined

	for _, retry := range []bool{true, false} {
		t.Run(map[bool]string{true: "retry", false: "new rows only"}[retry], func(t *testing.T) {
			eng, _ := newTestEngine(t, Config{Workers: 1, RetryEmpty: retry})
			tbl := sheet.NewTable("gap")

			res, err := eng.Update(ctx, spec, raw, tbl)
			require.NoError(t, err)
			assert.Equal(t, 1, res.CellsSkipped)

			row, _ := tbl.Row("B")
			col, _ := tbl.Column(raw.Axis[21])
			_, ok := tbl.Get(row, col)
			require.False(t, ok)

			fixed := rawTable(22, "A", "B")
			_, err = eng.Update(ctx, spec, fixed, tbl)
			require.NoError(t, err)

			_, ok = tbl.Get(row, col)
			assert.Equal(t, retry, ok)
		})
	}
}

func TestUpdate_SkipsGapsForPositionScores(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("s3")
	spec := NewSpec(KindS, "s3", 3)

	raw := domain.RawTable{
		Axis: axisOf(6),
		Entities: []domain.EntitySeries{{
			Entity: domain.Entity{Code: "A"},
			Series: domain.Series{
				domain.Value(1), domain.Undefined, domain.Value(5),
				domain.Value(3), domain.Undefined, domain.Value(4),
			},
		}},
	}

	_, err := eng.Update(context.Background(), spec, raw, tbl)
	require.NoError(t, err)

	// columns start at index 2
	v, ok := tbl.Lookup("A", raw.Axis[5])
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	v, ok = tbl.Lookup("A", raw.Axis[3])
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	_, ok = tbl.Lookup("A", raw.Axis[2])
	assert.False(t, ok, "only two defined values up to index 2")
}

func TestUpdate_UnsortedAxis(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	spec := NewSpec(KindGap, "gap", 20)

	sorted := rawTable(24, "A")
	shuffled := domain.RawTable{
		Axis:     append(domain.DateAxis{}, sorted.Axis...),
		Entities: []domain.EntitySeries{{Entity: sorted.Entities[0].Entity, Series: append(domain.Series{}, sorted.Entities[0].Series...)}},
	}
	for i, j := 0, len(shuffled.Axis)-1; i < j; i, j = i+1, j-1 {
		shuffled.Axis[i], shuffled.Axis[j] = shuffled.Axis[j], shuffled.Axis[i]
		s := shuffled.Entities[0].Series
		s[i], s[j] = s[j], s[i]
	}
	reversedFirst := shuffled.Axis[0]

	a, b := sheet.NewTable("gap"), sheet.NewTable("gap")
	_, err := eng.Update(ctx, spec, sorted, a)
	require.NoError(t, err)
	_, err = eng.Update(ctx, spec, shuffled, b)
	require.NoError(t, err)

	assert.Equal(t, snap(a), snap(b))
	assert.Equal(t, reversedFirst, shuffled.Axis[0], "caller's table is not reordered")
}

func TestUpdate_ParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	codes := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	raw := rawTable(80, codes...)

	for _, spec := range DefaultSpecs() {
		t.Run(spec.Sheet, func(t *testing.T) {
			seq, _ := newTestEngine(t, Config{Workers: 1, RetryEmpty: true})
			par, _ := newTestEngine(t, Config{Workers: 4, RetryEmpty: true})
			a, b := sheet.NewTable(spec.Sheet), sheet.NewTable(spec.Sheet)

			_, errA := seq.Update(ctx, spec, raw, a)
			_, errB := par.Update(ctx, spec, raw, b)
			assert.Equal(t, errA == nil, errB == nil)
			assert.Equal(t, snap(a), snap(b))
		})
	}
}

func TestUpdate_RowFailureIsContained(t *testing.T) {
	ctx := context.Background()
	eng, logs := newTestEngine(t, DefaultConfig())
	rec := &countingRecorder{}
	eng.WithRecorder(rec)
	spec := NewSpec(KindGap, "gap", 20)
	raw := rawTable(21, "A", "B")

	eng.compute = func(s Spec, series domain.Series, idx int) (float64, bool) {
		if &series[0] == &raw.Entities[1].Series[0] {
			panic("bad row")
		}
		return s.Compute(series, idx)
	}

	tbl := sheet.NewTable("gap")
	res, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CellsWritten)
	assert.Equal(t, 2, res.CellsSkipped)
	assert.Equal(t, 2, rec.failures)
	testutil.AssertLogContains(t, logs, slog.LevelError, "row computation failed")

	eng.compute = Spec.Compute
	res, err = eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CellsWritten, "failed cells are retried")
}

func TestUpdate_DuplicateAndBlankCodes(t *testing.T) {
	eng, logs := newTestEngine(t, DefaultConfig())
	raw := rawTable(20, "A", "A", "")

	tbl := sheet.NewTable("gap")
	_, err := eng.Update(context.Background(), NewSpec(KindGap, "gap", 20), raw, tbl)
	require.NoError(t, err)

	assert.Len(t, tbl.Rows(), 1)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "duplicate entity code")
}

func TestUpdate_CancelledContext(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Update(ctx, NewSpec(KindGap, "gap", 20), rawTable(25, "A"), sheet.NewTable("gap"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	spec := NewSpec(KindGap, "gap", 20)
	raw := rawTable(25, "A", "B")

	incremental := sheet.NewTable("gap")
	_, err := eng.Update(ctx, spec, rawTable(22, "A"), incremental)
	require.NoError(t, err)
	_, err = eng.Update(ctx, spec, raw, incremental)
	require.NoError(t, err)

	rebuilt, res, err := eng.Rebuild(ctx, spec, raw)
	require.NoError(t, err)
	assert.True(t, res.Rebuilt)
	assert.Equal(t, snap(incremental), snap(rebuilt))
}

type countingRecorder struct {
	mu       sync.Mutex
	updates  int
	skips    int
	failures int
}

func (c *countingRecorder) RecordUpdate(context.Context, string, domain.UpdateResult, time.Duration) {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordSkip(context.Context, string, string) {
	c.mu.Lock()
	c.skips++
	c.mu.Unlock()
}

func (c *countingRecorder) RecordRowFailure(context.Context, string) {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

func TestUpdate_CountsRenamedRows(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, DefaultConfig())
	tbl := sheet.NewTable("gap")
	spec := NewSpec(KindGap, "gap", 5)

	_, err := eng.Update(ctx, spec, rawTable(10, "A", "B"), tbl)
	require.NoError(t, err)

	raw := rawTable(10, "A", "B")
	raw.Entities[1].Entity.Name = "Beta Holdings"
	raw.Entities[0].Entity.Name = ""

	res, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsRenamed)
	assert.Zero(t, res.CellsWritten)
	assert.True(t, res.Changed())

	h, ok := tbl.Row("B")
	require.True(t, ok)
	info, ok := tbl.Info(h)
	require.True(t, ok)
	assert.Equal(t, "Beta Holdings", info.Name)

	again, err := eng.Update(ctx, spec, raw, tbl)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}
