package s0_data

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// 테이블 이름 (SchemaError/로그용)
const (
	TableSegments = "segments"
	TableMacro    = "macro"
	TableScenario = "scenario"
)

// 거시 변수 컬럼 (시나리오 테이블은 "<driver>_<scenario>")
const (
	ColOutputLevel  = "PIB"
	ColPriceIndex   = "IPL"
	ColUnemployment = "TCH"
	ColInflation    = "Inflation"
)

// ReadSegments reads the segment table (segment_id, period, indicator).
// 원천 파일의 note_ref / cod_prd_ref / Indicateur_moyen_Brut 헤더도 허용.
// 세그먼트 id 가 정수가 아니면 0 으로 남겨 SegmentRepository 가 행 단위로 거름.
func ReadSegments(path string) ([]contracts.SegmentRecord, error) {
	t, err := readRawTable(path)
	if err != nil {
		return nil, err
	}
	t.Name = TableSegments
	return segmentsFromTable(t)
}

func segmentsFromTable(t *rawTable) ([]contracts.SegmentRecord, error) {
	segCol, err := t.column("segment_id", "note_ref", "segment")
	if err != nil {
		return nil, err
	}
	perCol, err := t.column("period", "cod_prd_ref")
	if err != nil {
		return nil, err
	}
	indCol, err := t.column("indicator", "Indicateur_moyen_Brut")
	if err != nil {
		return nil, err
	}

	out := make([]contracts.SegmentRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		if blank(row) {
			continue
		}
		id, _ := strconv.Atoi(cell(row, segCol))
		out = append(out, contracts.SegmentRecord{
			SegmentID: id,
			PeriodKey: cell(row, perCol),
			Indicator: cell(row, indCol),
		})
	}
	return out, nil
}

// ReadMacro reads the monthly macro history and maps each month-end date to its quarter.
// 분기 내 여러 월이 있으면 가장 늦은 월이 남음 (CollapseQuarterly).
// 날짜를 읽을 수 없는 행은 건너뛰고 DataQualityError 로 반환 (SchemaError 만 error).
func ReadMacro(path string) ([]contracts.MacroRecord, []error, error) {
	t, err := readRawTable(path)
	if err != nil {
		return nil, nil, err
	}
	t.Name = TableMacro
	return macroFromTable(t)
}

func macroFromTable(t *rawTable) ([]contracts.MacroRecord, []error, error) {
	dateCol, err := t.column("date", "date_dernier_mois", "month_end")
	if err != nil {
		return nil, nil, err
	}
	cols := make([]int, 4)
	for i, name := range []string{ColOutputLevel, ColPriceIndex, ColUnemployment, ColInflation} {
		if cols[i], err = t.column(name); err != nil {
			return nil, nil, err
		}
	}

	out := make([]contracts.MacroRecord, 0, len(t.Rows))
	var rejected []error
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		date, err := ParseDate(cell(row, dateCol))
		if err != nil {
			rejected = append(rejected, rowError(t.Name, i, cell(row, dateCol), err))
			continue
		}
		vals := make([]float64, 4)
		for j, c := range cols {
			vals[j] = parseNumber(cell(row, c))
		}
		out = append(out, contracts.MacroRecord{
			Period:       contracts.PeriodFromDate(date),
			Date:         date,
			OutputLevel:  vals[0],
			PriceIndex:   vals[1],
			Unemployment: vals[2],
			Inflation:    vals[3],
		})
	}
	return CollapseQuarterly(out), rejected, nil
}

// rowError 행 단위 날짜 오류 (i 는 데이터 행 인덱스, 보고는 헤더 포함 1-based)
func rowError(table string, i int, value string, err error) error {
	return &contracts.DataQualityError{Field: "date", Value: value, Err: fmt.Errorf("%s row %d: %w", table, i+2, err)}
}

// CollapseQuarterly keeps one row per period (latest date wins), sorted by period
func CollapseQuarterly(rows []contracts.MacroRecord) []contracts.MacroRecord {
	byPeriod := make(map[contracts.Period]contracts.MacroRecord, len(rows))
	for _, r := range rows {
		if prev, ok := byPeriod[r.Period]; ok && !r.Date.After(prev.Date) {
			continue
		}
		byPeriod[r.Period] = r
	}
	out := make([]contracts.MacroRecord, 0, len(byPeriod))
	for _, r := range byPeriod {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}

// FilterFrom keeps rows with period ≥ cutoff
func FilterFrom(rows []contracts.MacroRecord, cutoff contracts.Period) []contracts.MacroRecord {
	out := make([]contracts.MacroRecord, 0, len(rows))
	for _, r := range rows {
		if !r.Period.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// ReadScenarios reads the scenario table (date + "<driver>_<scenario>" columns).
// 날짜를 읽을 수 없는 행은 모든 시나리오에서 빠지고 DataQualityError 로 반환.
func ReadScenarios(path string) (contracts.ScenarioTable, []error, error) {
	t, err := readRawTable(path)
	if err != nil {
		return contracts.ScenarioTable{}, nil, err
	}
	t.Name = TableScenario
	return scenariosFromTable(t)
}

func scenariosFromTable(t *rawTable) (contracts.ScenarioTable, []error, error) {
	dateCol, err := t.column("date")
	if err != nil {
		return contracts.ScenarioTable{}, nil, err
	}
	var rejected []error

	table := contracts.ScenarioTable{Columns: make(map[string][]float64, len(t.Header))}
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		date, err := ParseDate(cell(row, dateCol))
		if err != nil {
			rejected = append(rejected, rowError(t.Name, i, cell(row, dateCol), err))
			continue
		}
		table.Dates = append(table.Dates, date)
		for j, h := range t.Header {
			if j == dateCol || h == "" {
				continue
			}
			table.Columns[h] = append(table.Columns[h], parseNumber(cell(row, j)))
		}
	}
	return table, rejected, nil
}

// ExtractScenario selects the four drivers of one scenario.
// 컬럼이 없으면 SchemaError (해당 시나리오만 실패).
func ExtractScenario(table contracts.ScenarioTable, name string) (contracts.ScenarioTrajectory, error) {
	drivers := []string{ColOutputLevel, ColPriceIndex, ColUnemployment, ColInflation}
	cols := make([][]float64, len(drivers))
	for i, d := range drivers {
		key := d + "_" + name
		c, ok := lookupColumn(table.Columns, key)
		if !ok {
			return contracts.ScenarioTrajectory{}, &contracts.SchemaError{Table: TableScenario, Column: key}
		}
		if len(c) != len(table.Dates) {
			return contracts.ScenarioTrajectory{}, fmt.Errorf("scenario column %s has %d rows, want %d", key, len(c), len(table.Dates))
		}
		cols[i] = c
	}

	traj := contracts.ScenarioTrajectory{Name: name, Rows: make([]contracts.MacroRecord, len(table.Dates))}
	for i, date := range table.Dates {
		traj.Rows[i] = contracts.MacroRecord{
			Period:       contracts.PeriodFromDate(date),
			Date:         date,
			OutputLevel:  cols[0][i],
			PriceIndex:   cols[1][i],
			Unemployment: cols[2][i],
			Inflation:    cols[3][i],
		}
	}
	traj.Rows = CollapseQuarterly(traj.Rows)
	return traj, nil
}

func lookupColumn(cols map[string][]float64, key string) ([]float64, bool) {
	if c, ok := cols[key]; ok {
		return c, true
	}
	for k, c := range cols {
		if strings.EqualFold(k, key) {
			return c, true
		}
	}
	return nil, false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/01",
	"02/01/2006",
	"1/2/06",
}

// ParseDate accepts ISO dates, "YYYY-MM" and Excel serial numbers
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseNumber 숫자 셀 (쉼표 소수 허용), 실패 시 NaN → 이후 결측 처리
func parseNumber(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := ParseIndicator(s); err == nil {
		return v
	}
	return math.NaN()
}
