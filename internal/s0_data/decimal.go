package s0_data

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// ParseIndicator 쉼표 소수 문자열 → float64 ("12,5" → 12.5)
// 실패 시 *contracts.DataQualityError (errors.Is(err, contracts.ErrDataQuality))
func ParseIndicator(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &contracts.DataQualityError{Field: "indicator", Value: raw, Err: fmt.Errorf("empty value")}
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &contracts.DataQualityError{Field: "indicator", Value: raw, Err: err}
	}
	v, _ := d.Float64()
	return v, nil
}
