package contracts

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{in: "2009T1", want: Period{2009, 1}},
		{in: " 2015t4 ", want: Period{2015, 4}},
		{in: "2020Q2", want: Period{2020, 2}},
		{in: "2009T5", wantErr: true},
		{in: "2009T0", wantErr: true},
		{in: "T1", wantErr: true},
		{in: "2009T", wantErr: true},
		{in: "abcdT1", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePeriod(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPeriod_Order(t *testing.T) {
	a := MustParsePeriod("2009T4")
	b := a.Next()
	if b != (Period{2010, 1}) {
		t.Fatalf("Next() = %v", b)
	}
	if !a.Before(b) || b.Before(a) || a.Compare(a) != 0 {
		t.Error("Compare is not lexicographic on (year, quarter)")
	}
	if b.String() != "2010T1" {
		t.Errorf("String() = %s", b)
	}
}

func TestPeriodFromDate(t *testing.T) {
	tests := map[string]Period{
		"2009-03-31": {2009, 1},
		"2009-04-30": {2009, 2},
		"2009-09-30": {2009, 3},
		"2009-12-31": {2009, 4},
	}
	for in, want := range tests {
		d, _ := time.Parse("2006-01-02", in)
		if got := PeriodFromDate(d); got != want {
			t.Errorf("PeriodFromDate(%s) = %v, want %v", in, got, want)
		}
	}

	p := MustParsePeriod("2021T3")
	if got := PeriodFromDate(p.Start()); got != p {
		t.Errorf("Start() round trip = %v", got)
	}
	if math.Abs(p.Ordinal()-2021.5) > 1e-12 {
		t.Errorf("Ordinal() = %v", p.Ordinal())
	}
}

func TestPeriod_JSONKey(t *testing.T) {
	row := PredictionRow{Period: MustParsePeriod("2024T2"), Segment: 1, Scenario: ScenarioCentral}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded PredictionRow
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Period != row.Period {
		t.Errorf("period = %v, want %v", decoded.Period, row.Period)
	}
}

func TestParseFamily(t *testing.T) {
	tests := map[string]ModelFamily{
		"RF":       FamilyEnsemble,
		"ensemble": FamilyEnsemble,
		"ols":      FamilyLinear,
		" Linear ": FamilyLinear,
	}
	for in, want := range tests {
		got, err := ParseFamily(in)
		if err != nil || got != want {
			t.Errorf("ParseFamily(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFamily("xgb"); err == nil {
		t.Error("unknown family accepted")
	}
	if FamilyLinear.Label() != "OLS" || FamilyEnsemble.Label() != "RF" {
		t.Error("Label mismatch")
	}
}

func TestNewSelectedFeatureSet(t *testing.T) {
	fs := NewSelectedFeatureSet(2, []string{"PIB", "TCH_diff1", "PIB", "PIB_lag1"})
	want := []string{"PIB", "TCH_diff1", "PIB_lag1"}
	if len(fs.Features) != len(want) {
		t.Fatalf("Features = %v, want %v", fs.Features, want)
	}
	for i := range want {
		if fs.Features[i] != want[i] {
			t.Errorf("Features[%d] = %s, want %s", i, fs.Features[i], want[i])
		}
	}
	if fs.Empty() || !NewSelectedFeatureSet(1, nil).Empty() {
		t.Error("Empty() mismatch")
	}
}

func TestModelingTable_Validate(t *testing.T) {
	p := MustParsePeriod("2010T1")
	ok := ModelingTable{
		Periods:          []Period{p, p.Next()},
		OutputLevel:      []float64{1, 2},
		PriceIndexCycle:  []float64{0, 0},
		UnemploymentDiff: []float64{0, 0},
		InflationDiff:    []float64{0, 0},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if ok.HasTarget() {
		t.Error("scenario table must not carry a target")
	}

	short := ok
	short.Target = []float64{1}
	if err := short.Validate(); err == nil {
		t.Error("target length mismatch accepted")
	}

	unordered := ok
	unordered.Periods = []Period{p.Next(), p}
	if err := unordered.Validate(); err == nil {
		t.Error("unordered periods accepted")
	}
}
