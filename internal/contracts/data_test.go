package contracts

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestDataQualitySnapshot_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		snapshot DataQualitySnapshot
		want     bool
	}{
		{
			name: "valid snapshot",
			snapshot: DataQualitySnapshot{
				Date:         time.Now(),
				TotalRows:    200,
				ValidRows:    190,
				QualityScore: 0.95,
				Coverage:     map[string]float64{"indicator": 0.95, "macro": 1.0},
			},
			want: true,
		},
		{
			name: "low quality score",
			snapshot: DataQualitySnapshot{
				Date:         time.Now(),
				TotalRows:    200,
				ValidRows:    100,
				QualityScore: 0.5,
			},
			want: false,
		},
		{
			name: "no valid rows",
			snapshot: DataQualitySnapshot{
				Date:         time.Now(),
				TotalRows:    200,
				ValidRows:    0,
				QualityScore: 0.8,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snapshot.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDataQualitySnapshot_CoverageRate(t *testing.T) {
	snapshot := DataQualitySnapshot{
		Coverage: map[string]float64{
			"indicator": 0.95,
			"macro":     0.90,
			"period":    0.85,
		},
	}

	expected := (0.95 + 0.90 + 0.85) / 3
	if rate := snapshot.CoverageRate(); math.Abs(rate-expected) > 1e-12 {
		t.Errorf("CoverageRate() = %v, want %v", rate, expected)
	}

	empty := DataQualitySnapshot{}
	if rate := empty.CoverageRate(); rate != 0 {
		t.Errorf("CoverageRate() of empty = %v, want 0", rate)
	}
}

func TestAllSegments(t *testing.T) {
	segs := AllSegments()
	if len(segs) != 5 || segs[0] != 1 || segs[4] != 5 {
		t.Fatalf("AllSegments() = %v", segs)
	}
	if IsValidSegment(0) || IsValidSegment(6) || !IsValidSegment(3) {
		t.Error("IsValidSegment bounds wrong")
	}
}

func TestMacroSnapshot_Complete(t *testing.T) {
	full := MacroSnapshot{OutputLevel: 1, UnemploymentDiff: 0.1, InflationDiff: 0.2, PriceIndexDiffHP: -0.3}
	if !full.Complete() {
		t.Error("expected complete snapshot")
	}

	// 첫 분기는 차분이 없음
	first := full
	first.InflationDiff = math.NaN()
	if first.Complete() {
		t.Error("NaN driver must be incomplete")
	}

	inf := full
	inf.OutputLevel = math.Inf(1)
	if inf.Complete() {
		t.Error("Inf driver must be incomplete")
	}
}

func TestErrors_Classification(t *testing.T) {
	dq := &DataQualityError{Segment: 3, Period: "2010T3", Field: "indicator", Value: "abc"}
	if !errors.Is(dq, ErrDataQuality) {
		t.Error("DataQualityError must match ErrDataQuality")
	}
	if IsFatal(dq) {
		t.Error("data quality errors are not fatal")
	}
	want := `data quality: field indicator value "abc" segment 3 period 2010T3`
	if dq.Error() != want {
		t.Errorf("Error() = %q, want %q", dq.Error(), want)
	}

	schema := fmt.Errorf("scenario OPT: %w", &SchemaError{Table: "scenarios", Column: "PIB_OPT"})
	if !errors.Is(schema, ErrSchema) || !IsFatal(schema) {
		t.Error("wrapped SchemaError must be fatal")
	}

	art := &ArtifactError{Segment: 2, Key: "segment_2/linear", Err: ErrArtifactMissing}
	if !errors.Is(art, ErrArtifactMissing) || errors.Is(art, ErrArtifactMismatch) {
		t.Error("ArtifactError must unwrap to its cause only")
	}
}

func TestStage_ShortName(t *testing.T) {
	for i, s := range AllStages() {
		want := fmt.Sprintf("S%d", i)
		if got := s.ShortName(); got != want {
			t.Errorf("%s.ShortName() = %s, want %s", s, got, want)
		}
		if !IsValidStage(s.String()) {
			t.Errorf("IsValidStage(%s) = false", s)
		}
	}
	if IsValidStage("S9_UNKNOWN") {
		t.Error("unknown stage accepted")
	}
}
