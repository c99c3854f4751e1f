package domain

import (
	"strings"
)

// Market identifies the exchange family a workbook belongs to.
// It only affects how entity codes are normalised.
type Market string

const (
	MarketKR Market = "KR"
	MarketUS Market = "US"
)

// krCodeWidth is the fixed width of a Korean listing code.
const krCodeWidth = 6

// Entity is a tracked instrument. Code is the identity; Name is display only.
type Entity struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name"`
}

// MarketForCategory derives the market from a workbook category name such as
// "KR_BIO" or "US_TECH". Anything without a KR prefix is treated as US.
func MarketForCategory(category string) Market {
	if strings.HasPrefix(strings.ToUpper(category), "KR_") {
		return MarketKR
	}
	return MarketUS
}

// NormalizeCode turns a raw spreadsheet code cell into the canonical entity code.
// Numeric cells read back as "5930" or "5930.0" become "005930" for KR.
func NormalizeCode(raw string, market Market) string {
	code := strings.TrimSpace(raw)
	code = strings.TrimSuffix(code, ".0")
	if code == "" {
		return ""
	}

	if market == MarketKR {
		if isDigits(code) && len(code) < krCodeWidth {
			code = strings.Repeat("0", krCodeWidth-len(code)) + code
		}
		return code
	}
	return strings.ToUpper(code)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
