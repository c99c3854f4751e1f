package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	apperrors "scorecli/internal/errors"
)

type rangeQuery struct {
	Sheet string `json:"sheet" validate:"sheetname"`
	From  string `query:"from" validate:"omitempty,datekey"`
	To    string `query:"to" validate:"omitempty,datekey"`
	Code  string `json:"code" validate:"required,max=6"`
}

type ValidatorSuite struct {
	suite.Suite
	v *Validator
}

func (s *ValidatorSuite) SetupTest() {
	s.v = NewValidator()
}

func (s *ValidatorSuite) fields(err error) map[string]string {
	s.Require().Error(err)
	var apiErr *apperrors.APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal("VALIDATION_FAILED", apiErr.ErrorCode)

	details, ok := apiErr.Details.([]apperrors.ValidationError)
	s.Require().True(ok)
	out := make(map[string]string, len(details))
	for _, d := range details {
		out[d.Field] = d.Message
	}
	return out
}

func (s *ValidatorSuite) TestValid() {
	s.NoError(s.v.ValidateStruct(rangeQuery{Sheet: "s20", From: "20240102", To: "2024-03-01", Code: "005930"}))
	s.NoError(s.v.ValidateStruct(rangeQuery{Sheet: "종가", Code: "AAPL"}))
}

func (s *ValidatorSuite) TestDateKeys() {
	got := s.fields(s.v.ValidateStruct(rangeQuery{Sheet: "s20", From: "2024", To: "20240230", Code: "AAPL"}))
	s.Equal("from must be a date in YYYYMMDD form", got["from"])
	s.Equal("to must be a date in YYYYMMDD form", got["to"])
}

func (s *ValidatorSuite) TestSheetNames() {
	for _, name := range []string{"", "a/b", "x[1]", "what?", "this-sheet-name-is-far-too-long-for-excel"} {
		got := s.fields(s.v.ValidateStruct(rangeQuery{Sheet: name, Code: "AAPL"}))
		s.Equal("sheet is not a valid sheet name", got["sheet"], name)
	}
}

func (s *ValidatorSuite) TestRequiredAndMax() {
	got := s.fields(s.v.ValidateStruct(rangeQuery{Sheet: "gap"}))
	s.Equal("code is required", got["code"])

	got = s.fields(s.v.ValidateStruct(rangeQuery{Sheet: "gap", Code: "TOOLONG"}))
	s.Equal("code must be at most 6 characters", got["code"])
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}
