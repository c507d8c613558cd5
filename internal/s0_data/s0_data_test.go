package s0_data

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

func TestParseIndicator(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{"decimal comma", "12,5", 12.5, false},
		{"decimal point", "0.75", 0.75, false},
		{"padded", "  3,25 ", 3.25, false},
		{"integer", "7", 7, false},
		{"negative", "-0,125", -0.125, false},
		{"letters", "abc", 0, true},
		{"empty", "", 0, true},
		{"two commas", "1,2,3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIndicator(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, contracts.ErrDataQuality))
				var dq *contracts.DataQualityError
				assert.True(t, errors.As(err, &dq))
				assert.Equal(t, tt.raw, dq.Value)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseDelimited_Segments(t *testing.T) {
	csvText := "note_ref;cod_prd_ref;Indicateur_moyen_Brut\n" +
		"1;2010T1;0,5\n" +
		"1; 2010t2 ;0,6\n" +
		"\n" +
		"2;2010T1;abc\n"

	raw, err := parseDelimited("segments.csv", strings.NewReader(csvText))
	require.NoError(t, err)
	recs, err := segmentsFromTable(raw)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, contracts.SegmentRecord{SegmentID: 1, PeriodKey: "2010T1", Indicator: "0,5"}, recs[0])
	assert.Equal(t, "2010t2", recs[1].PeriodKey)
	assert.Equal(t, "abc", recs[2].Indicator)
}

func TestSegmentsFromTable_SchemaError(t *testing.T) {
	raw, err := parseDelimited("segments.csv", strings.NewReader("segment_id,period\n1,2010T1\n"))
	require.NoError(t, err)
	raw.Name = TableSegments

	_, err = segmentsFromTable(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrSchema))
	assert.True(t, contracts.IsFatal(err))

	var se *contracts.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "indicator", se.Column)
}

func TestReadMacro_Workbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macro.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"date_dernier_mois", "PIB", "IPL", "TCH", "Inflation"},
		{"2009-01", 100.0, 50.0, 8.0, 1.0},
		{"2009-03", 101.0, 51.0, 8.1, 1.1},
		{"2009-06", 102.0, 52.0, 8.2, "1,2"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	recs, rejected, err := ReadMacro(path)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, recs, 2, "two months of 2009T1 collapse to one row")

	assert.Equal(t, contracts.MustParsePeriod("2009T1"), recs[0].Period)
	assert.Equal(t, 101.0, recs[0].OutputLevel, "latest month of the quarter wins")
	assert.Equal(t, contracts.MustParsePeriod("2009T2"), recs[1].Period)
	assert.InDelta(t, 1.2, recs[1].Inflation, 1e-12)
}

func TestReadMacro_BadDateRowSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.csv")
	content := "date;PIB;IPL;TCH;Inflation\n" +
		"2009-03-31;100;50;8;1\n" +
		"not-a-date;101;51;8,1;1,1\n" +
		"2009-06-30;102;52;8,2;1,2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	recs, rejected, err := ReadMacro(path)
	require.NoError(t, err, "a bad row must not abort the table")
	require.Len(t, recs, 2)
	assert.Equal(t, "2009T1", recs[0].Period.String())
	assert.Equal(t, "2009T2", recs[1].Period.String())

	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], contracts.ErrDataQuality)
	assert.False(t, contracts.IsFatal(rejected[0]))
	assert.ErrorContains(t, rejected[0], "macro row 3")
}

func TestReadScenarios_BadDateRowSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.csv")
	content := "date,PIB_CENT,IPL_CENT,TCH_CENT,Inflation_CENT\n" +
		"2024-03-31,1,2,3,4\n" +
		"??,5,5,5,5\n" +
		"2024-06-30,1.5,2.5,3.5,4.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, rejected, err := ReadScenarios(path)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], contracts.ErrDataQuality)
	require.Len(t, table.Dates, 2)
	for name, col := range table.Columns {
		assert.Len(t, col, 2, name)
	}

	traj, err := ExtractScenario(table, contracts.ScenarioCentral)
	require.NoError(t, err)
	require.Len(t, traj.Rows, 2)
	assert.Equal(t, 1.5, traj.Rows[1].OutputLevel)

	// 필수 컬럼 누락은 여전히 치명적
	table, _, err = scenariosFromTable(&rawTable{Name: TableScenario, Header: []string{"when", "PIB_CENT"}})
	assert.True(t, contracts.IsFatal(err))
	assert.Empty(t, table.Dates)
}

func TestFilterFrom(t *testing.T) {
	rows := []contracts.MacroRecord{
		{Period: contracts.MustParsePeriod("2008T4")},
		{Period: contracts.MustParsePeriod("2009T1")},
		{Period: contracts.MustParsePeriod("2009T2")},
	}
	got := FilterFrom(rows, contracts.MustParsePeriod("2009T1"))
	require.Len(t, got, 2)
	assert.Equal(t, "2009T1", got[0].Period.String())
}

func TestReadScenarios_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenarios.csv")
	content := "date,PIB_CENT,IPL_CENT,TCH_CENT,Inflation_CENT,PIB_PESS\n" +
		"2024-03-31,1,2,3,4,9\n" +
		"2024-06-30,1.5,2.5,3.5,4.5,9\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, rejected, err := ReadScenarios(path)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, table.Dates, 2)

	traj, err := ExtractScenario(table, contracts.ScenarioCentral)
	require.NoError(t, err)
	require.Len(t, traj.Rows, 2)
	assert.Equal(t, contracts.MustParsePeriod("2024T2"), traj.Rows[1].Period)
	assert.Equal(t, 3.5, traj.Rows[1].Unemployment)

	_, err = ExtractScenario(table, contracts.ScenarioPessimistic)
	assert.True(t, errors.Is(err, contracts.ErrSchema), "PESS lacks three drivers")
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2009-03", time.Date(2009, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2021-06-30", time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"44196", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)
}

func TestSegmentRepository_Partition(t *testing.T) {
	repo := NewSegmentRepository(zerolog.Nop())

	records := []contracts.SegmentRecord{
		{SegmentID: 1, PeriodKey: "2010T2", Indicator: "0,6"},
		{SegmentID: 1, PeriodKey: " 2010t1", Indicator: "0,5"},
		{SegmentID: 3, PeriodKey: "2010T1", Indicator: "abc"},
		{SegmentID: 3, PeriodKey: "2010T2", Indicator: "0,4"},
		{SegmentID: 3, PeriodKey: "2010T2", Indicator: "0,9"},
		{SegmentID: 7, PeriodKey: "2010T1", Indicator: "0,1"},
		{SegmentID: 2, PeriodKey: "20101", Indicator: "0,1"},
	}

	series, issues := repo.Partition(records)
	require.Len(t, series, 5)
	assert.Len(t, issues, 4)
	for _, err := range issues {
		assert.True(t, errors.Is(err, contracts.ErrDataQuality))
	}

	s1 := series[1]
	assert.Equal(t, []contracts.Period{contracts.MustParsePeriod("2010T1"), contracts.MustParsePeriod("2010T2")}, s1.Periods)
	assert.Equal(t, []float64{0.5, 0.6}, s1.Values)

	s3 := series[3]
	require.Len(t, s3.Values, 2)
	assert.True(t, math.IsNaN(s3.Values[0]), "malformed indicator stays as a missing row")
	assert.Equal(t, 0.4, s3.Values[1], "first occurrence of a duplicate period wins")

	idx, vals := s3.Valid()
	assert.Equal(t, []int{1}, idx)
	assert.Equal(t, []float64{0.4}, vals)

	assert.Empty(t, series[2].Periods)
	assert.Empty(t, series[5].Periods)
}

func TestSegmentSeries_Substitute(t *testing.T) {
	s := SegmentSeries{
		Segment: 2,
		Periods: []contracts.Period{{Year: 2010, Quarter: 1}, {Year: 2010, Quarter: 2}, {Year: 2010, Quarter: 3}},
		Values:  []float64{1, math.NaN(), 3},
	}
	out, err := s.Substitute([]int{0, 2}, []float64{-0.5, 0.5})
	require.NoError(t, err)
	assert.Equal(t, -0.5, out.Values[0])
	assert.True(t, math.IsNaN(out.Values[1]))
	assert.Equal(t, 0.5, out.Values[2])
	assert.Equal(t, 1.0, s.Values[0], "source series is not mutated")

	_, err = s.Substitute([]int{0}, nil)
	assert.Error(t, err)
}

func TestSegmentRepository_Merge(t *testing.T) {
	repo := NewSegmentRepository(zerolog.Nop())

	series := map[int]SegmentSeries{
		1: {
			Segment: 1,
			Periods: []contracts.Period{contracts.MustParsePeriod("2010T1"), contracts.MustParsePeriod("2010T2")},
			Values:  []float64{0.5, 0.6},
		},
	}
	macro := []contracts.MacroSnapshot{
		{Period: contracts.MustParsePeriod("2010T1"), OutputLevel: 100, UnemploymentDiff: 0.1, InflationDiff: 0.2, PriceIndexDiffHP: 0.3},
	}

	tables := repo.Merge(series, macro)
	require.Len(t, tables, 5)

	t1 := tables[1]
	require.NoError(t, t1.Validate())
	assert.Equal(t, 2, t1.Len())
	assert.Equal(t, 100.0, t1.OutputLevel[0])
	assert.Equal(t, 0.3, t1.PriceIndexCycle[0])
	assert.True(t, math.IsNaN(t1.OutputLevel[1]), "left join keeps unmatched rows with missing macro values")
	assert.Equal(t, []float64{0.5, 0.6}, t1.Target)

	assert.Equal(t, 0, tables[4].Len())
}
