package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecli/internal/dataprocessing"
	apperrors "scorecli/internal/errors"
	"scorecli/internal/exporter"
	"scorecli/internal/sheet"
	"scorecli/internal/shared/testutil"
	"scorecli/pkg/contracts/domain"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// seedCategory writes a raw workbook plus an s3 sheet with three columns.
// AAPL has every cell, MSFT only the last.
func seedCategory(t *testing.T, dir, file string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	testutil.WriteWorkbook(t, path, testutil.RawSheet{
		Name:  dataprocessing.PriceSheet,
		Dates: testutil.DateHeaders(day0, 3),
		Rows: []testutil.RawRow{
			{Name: "Apple", Code: "AAPL", Values: testutil.Ramp(3, 100, 1)},
		},
	})

	table := sheet.NewTable("s3")
	aapl, _ := table.EnsureRow("AAPL", "Apple")
	msft, _ := table.EnsureRow("MSFT", "Microsoft")
	for i := 0; i < 3; i++ {
		col, err := table.AppendColumn(domain.DateKeyFromTime(day0.AddDate(0, 0, i)))
		require.NoError(t, err)
		table.SetIfEmpty(aapl, col, float64(10*(i+1)))
		if i == 2 {
			table.SetIfEmpty(msft, col, -7)
		}
	}

	store := exporter.NewWorkbookStore(nil)
	require.NoError(t, store.SaveSheet(path, table, exporter.SaveOptions{Integral: true}))
	return path
}

func newTestScoreService(t *testing.T) *ScoreService {
	t.Helper()
	dir := t.TempDir()
	seedCategory(t, dir, "US_TECH.xlsx")
	logger, _ := testutil.NewTestLogger(t)
	return NewScoreService(map[string]string{
		"US_TECH": "US_TECH.xlsx",
		"KR_BIO":  "KR_BIO.xlsx",
	}, dir, nil, logger)
}

func TestScoreService_ListFiles(t *testing.T) {
	svc := newTestScoreService(t)

	files, err := svc.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "KR_BIO", files[0].Category)
	assert.Equal(t, domain.MarketKR, files[0].Market)
	assert.False(t, files[0].Available)
	assert.Empty(t, files[0].Sheets)

	assert.Equal(t, "US_TECH", files[1].Category)
	assert.Equal(t, "US_TECH.xlsx", files[1].File)
	assert.True(t, files[1].Available)
	assert.Equal(t, []string{"s3"}, files[1].Sheets)
}

func TestScoreService_GetSheet(t *testing.T) {
	svc := newTestScoreService(t)
	ctx := context.Background()
	d := func(i int) domain.DateKey { return domain.DateKeyFromTime(day0.AddDate(0, 0, i)) }

	tests := []struct {
		name        string
		from, to    domain.DateKey
		wantColumns []domain.DateKey
	}{
		{name: "open range", wantColumns: []domain.DateKey{d(0), d(1), d(2)}},
		{name: "from only", from: d(1), wantColumns: []domain.DateKey{d(1), d(2)}},
		{name: "to only", to: d(0), wantColumns: []domain.DateKey{d(0)}},
		{name: "single day", from: d(2), to: d(2), wantColumns: []domain.DateKey{d(2)}},
		{name: "past the end", from: d(5), wantColumns: []domain.DateKey{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := svc.GetSheet(ctx, "US_TECH", "s3", tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.wantColumns, view.Columns)
			require.Len(t, view.Rows, 2)
			for _, row := range view.Rows {
				assert.Len(t, row.Values, len(tt.wantColumns))
			}
		})
	}

	view, err := svc.GetSheet(ctx, "US_TECH", "s3", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", view.Rows[0].Code)
	assert.Equal(t, "Apple", view.Rows[0].Name)
	require.NotNil(t, view.Rows[0].Values[0])
	assert.Equal(t, 10.0, *view.Rows[0].Values[0])

	msft := view.Rows[1]
	assert.Equal(t, "MSFT", msft.Code)
	assert.Nil(t, msft.Values[0])
	assert.Nil(t, msft.Values[1])
	require.NotNil(t, msft.Values[2])
	assert.Equal(t, -7.0, *msft.Values[2])
}

func TestScoreService_GetSheetErrors(t *testing.T) {
	svc := newTestScoreService(t)
	ctx := context.Background()
	d := func(i int) domain.DateKey { return domain.DateKeyFromTime(day0.AddDate(0, 0, i)) }

	tests := []struct {
		name     string
		category string
		sheet    string
		from, to domain.DateKey
		wantErr  error
	}{
		{name: "unknown category", category: "US_NOPE", sheet: "s3", wantErr: apperrors.ErrUnknownCategory},
		{name: "missing sheet", category: "US_TECH", sheet: "z20", wantErr: apperrors.ErrSheetNotFound},
		{name: "raw sheet is not served", category: "US_TECH", sheet: dataprocessing.PriceSheet, wantErr: apperrors.ErrSheetNotFound},
		{name: "missing workbook", category: "KR_BIO", sheet: "s3", wantErr: apperrors.ErrSourceMissing},
		{name: "inverted range", category: "US_TECH", sheet: "s3", from: d(2), to: d(0), wantErr: ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetSheet(ctx, tt.category, tt.sheet, tt.from, tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScoreService_GetEntity(t *testing.T) {
	svc := newTestScoreService(t)
	ctx := context.Background()

	view, err := svc.GetEntity(ctx, "US_TECH", "s3", "msft")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", view.Code)
	assert.Equal(t, "Microsoft", view.Name)
	require.Len(t, view.Scores, 1)
	assert.Equal(t, domain.DateKeyFromTime(day0.AddDate(0, 0, 2)), view.Scores[0].Date)
	assert.Equal(t, -7.0, view.Scores[0].Value)

	view, err = svc.GetEntity(ctx, "US_TECH", "s3", "AAPL")
	require.NoError(t, err)
	assert.Len(t, view.Scores, 3)

	_, err = svc.GetEntity(ctx, "US_TECH", "s3", "GOOG")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestScoreService_MarketOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ETF.xlsx")
	testutil.WriteWorkbook(t, path, testutil.RawSheet{Name: dataprocessing.PriceSheet})

	table := sheet.NewTable("gap")
	col, err := table.AppendColumn(domain.DateKeyFromTime(day0))
	require.NoError(t, err)
	row, _ := table.EnsureRow("069500", "KODEX 200")
	table.SetIfEmpty(row, col, 101)
	require.NoError(t, exporter.NewWorkbookStore(nil).SaveSheet(path, table, exporter.SaveOptions{Integral: true}))

	files := map[string]string{"ETF": "ETF.xlsx"}
	ctx := context.Background()

	t.Run("inferred market keeps the code verbatim", func(t *testing.T) {
		svc := NewScoreService(files, dir, nil, nil)
		_, err := svc.GetEntity(ctx, "ETF", "gap", "69500")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("override pads codes like the scoring run", func(t *testing.T) {
		svc := NewScoreService(files, dir, nil, nil).WithMarkets(map[string]string{"ETF": "kr"})

		listed, err := svc.ListFiles(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, domain.MarketKR, listed[0].Market)

		view, err := svc.GetEntity(ctx, "ETF", "gap", "69500")
		require.NoError(t, err)
		assert.Equal(t, "069500", view.Code)
		require.Len(t, view.Scores, 1)
		assert.Equal(t, 101.0, view.Scores[0].Value)
	})
}
