package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period 분기 식별자 ("<year>T<quarter>")
// ⭐ SSOT: 모든 시계열 행의 키는 Period
type Period struct {
	Year    int
	Quarter int // 1..4
}

// ParsePeriod parses "2009T1" style keys.
// 앞뒤 공백 제거 + 대소문자 무시, "2009Q1" 도 허용
func ParsePeriod(s string) (Period, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	sep := strings.IndexAny(key, "TQ")
	if sep <= 0 || sep == len(key)-1 {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}

	year, err := strconv.Atoi(key[:sep])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period year %q: %w", s, err)
	}
	quarter, err := strconv.Atoi(key[sep+1:])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period quarter %q: %w", s, err)
	}

	p := Period{Year: year, Quarter: quarter}
	if !p.Valid() {
		return Period{}, fmt.Errorf("invalid period %q: quarter must be 1..4", s)
	}
	return p, nil
}

// MustParsePeriod panics on malformed input (tests, constants)
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PeriodFromDate 날짜가 속한 분기
func PeriodFromDate(t time.Time) Period {
	return Period{Year: t.Year(), Quarter: (int(t.Month())-1)/3 + 1}
}

// Valid reports whether the quarter is in 1..4
func (p Period) Valid() bool {
	return p.Quarter >= 1 && p.Quarter <= 4
}

// String returns the canonical "<year>T<quarter>" key
func (p Period) String() string {
	return fmt.Sprintf("%dT%d", p.Year, p.Quarter)
}

// Compare (year, quarter) 사전식 비교: -1, 0, +1
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Quarter < o.Quarter:
		return -1
	case p.Quarter > o.Quarter:
		return 1
	default:
		return 0
	}
}

// Before reports p < o
func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

// Next returns the following quarter
func (p Period) Next() Period {
	if p.Quarter == 4 {
		return Period{Year: p.Year + 1, Quarter: 1}
	}
	return Period{Year: p.Year, Quarter: p.Quarter + 1}
}

// Start 분기 첫날 (UTC)
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month((p.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// Ordinal 차트 x축용 연속 값 (2009T1 → 2009.00, 2009T2 → 2009.25)
func (p Period) Ordinal() float64 {
	return float64(p.Year) + float64(p.Quarter-1)/4
}

// MarshalText encodes the period as its canonical key
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a canonical key
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
