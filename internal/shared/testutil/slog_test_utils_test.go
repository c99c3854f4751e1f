package testutil

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
	})

	t.Run("keeps logger attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "engine").Warn("skipped")

		assert.True(t, handler.ContainsAttr("component", "engine"))
		AssertLogContains(t, handler, slog.LevelWarn, "skipped")
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelDebug), 1)
		AssertNoErrors(t, handler)
	})
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	dates := DateHeaders(time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), 3)

	WriteWorkbook(t, path,
		RawSheet{Name: "종가", Dates: dates, Rows: []RawRow{{Name: "Alpha", Code: "000001", Values: Ramp(3, 10, 1)}}},
		RawSheet{Name: "거래량", Dates: dates},
	)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"종가", "거래량"}, f.GetSheetList())
	rows, err := f.GetRows("종가")
	require.NoError(t, err)
	assert.Equal(t, []string{"종목명", "종목코드", "20240130", "20240131", "20240201"}, rows[0])
	assert.Equal(t, []string{"Alpha", "000001", "10", "11", "12"}, rows[1])
}
