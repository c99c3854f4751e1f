package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "scorecli/internal/errors"
	"scorecli/internal/services"
	"scorecli/internal/shared/testutil"
	"scorecli/pkg/contracts/domain"
)

type mockScoreService struct {
	files     []services.FileInfo
	sheet     *services.SheetView
	entity    *services.EntityView
	err       error
	gotFrom   domain.DateKey
	gotTo     domain.DateKey
	gotCode   string
	callCount int
}

func (m *mockScoreService) ListFiles(context.Context) ([]services.FileInfo, error) {
	m.callCount++
	return m.files, m.err
}

func (m *mockScoreService) GetSheet(_ context.Context, _, _ string, from, to domain.DateKey) (*services.SheetView, error) {
	m.callCount++
	m.gotFrom, m.gotTo = from, to
	return m.sheet, m.err
}

func (m *mockScoreService) GetEntity(_ context.Context, _, _, code string) (*services.EntityView, error) {
	m.callCount++
	m.gotCode = code
	return m.entity, m.err
}

func serve(t *testing.T, svc ScoreServiceInterface, target string) *httptest.ResponseRecorder {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewScoresHandler(svc, logger, apierrors.NewErrorHandler(logger, false))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestScoresHandler_ListFiles(t *testing.T) {
	svc := &mockScoreService{files: []services.FileInfo{
		{Category: "US_TECH", File: "US_TECH.xlsx", Market: domain.MarketUS, Available: true, Sheets: []string{"s20"}},
	}}

	rec := serve(t, svc, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	files := body["files"].([]interface{})
	assert.Equal(t, "US_TECH", files[0].(map[string]interface{})["category"])
}

func TestScoresHandler_GetSheet(t *testing.T) {
	v := 1.5
	svc := &mockScoreService{sheet: &services.SheetView{
		Category: "US_TECH",
		Sheet:    "s20",
		Columns:  []domain.DateKey{20240304},
		Rows: []services.RowView{
			{Code: "AAPL", Name: "Apple", Values: []*float64{&v}},
			{Code: "MSFT", Name: "Microsoft", Values: []*float64{nil}},
		},
	}}

	rec := serve(t, svc, "/US_TECH/sheets/s20?from=20240301&to=2024-03-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DateKey(20240301), svc.gotFrom)
	assert.Equal(t, domain.DateKey(20240331), svc.gotTo)

	body := decode(t, rec)
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{1.5}, rows[0].(map[string]interface{})["values"])
	assert.Equal(t, []interface{}{nil}, rows[1].(map[string]interface{})["values"])
}

func TestScoresHandler_GetSheetErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		serviceErr error
		wantStatus int
		wantType   string
		wantCalled bool
	}{
		{
			name:       "malformed from",
			target:     "/US_TECH/sheets/s20?from=yesterday",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "impossible date",
			target:     "/US_TECH/sheets/s20?to=20240231",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "inverted range",
			target:     "/US_TECH/sheets/s20?from=20240310&to=20240301",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "bad sheet name",
			target:     "/US_TECH/sheets/a*b",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unknown category",
			target:     "/US_NOPE/sheets/s20",
			serviceErr: fmt.Errorf("US_NOPE: %w", apierrors.ErrUnknownCategory),
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeSheetNotFound,
			wantCalled: true,
		},
		{
			name:       "missing sheet",
			target:     "/US_TECH/sheets/z5",
			serviceErr: fmt.Errorf("US_TECH/z5: %w", apierrors.ErrSheetNotFound),
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeSheetNotFound,
			wantCalled: true,
		},
		{
			name:       "missing workbook",
			target:     "/US_TECH/sheets/s20",
			serviceErr: fmt.Errorf("open: %w", apierrors.ErrSourceMissing),
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeSourceMissing,
			wantCalled: true,
		},
		{
			name:       "corrupt sheet",
			target:     "/US_TECH/sheets/s20",
			serviceErr: fmt.Errorf("row 3: %w", apierrors.ErrSheetCorrupt),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeSheetCorrupt,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockScoreService{err: tt.serviceErr}
			rec := serve(t, svc, tt.target)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Contains(t, body, "trace_id")
			assert.Equal(t, tt.wantCalled, svc.callCount > 0)
		})
	}
}

func TestScoresHandler_GetEntity(t *testing.T) {
	svc := &mockScoreService{entity: &services.EntityView{
		Category: "KR_BIO",
		Sheet:    "gap",
		Code:     "005930",
		Scores:   []services.ScorePoint{{Date: 20240304, Value: 12}},
	}}

	rec := serve(t, svc, "/KR_BIO/sheets/gap/entities/005930")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "005930", svc.gotCode)

	body := decode(t, rec)
	scores := body["scores"].([]interface{})
	require.Len(t, scores, 1)
	assert.EqualValues(t, 20240304, scores[0].(map[string]interface{})["date"])

	missing := &mockScoreService{err: fmt.Errorf("GOOG: %w", services.ErrEntityNotFound)}
	rec = serve(t, missing, "/KR_BIO/sheets/gap/entities/GOOG")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierrors.TypeNotFound, decode(t, rec)["type"])
}
