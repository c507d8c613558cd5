package s0_data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// rawTable 헤더 + 문자열 셀 (경계 입력의 공통 형태)
type rawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// readRawTable reads .xlsx/.xlsm through excelize and anything else as delimited text
func readRawTable(path string) (*rawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	default:
		return readDelimited(path)
	}
}

// readWorkbook 첫 번째 비어있지 않은 시트를 사용
func readWorkbook(path string) (*rawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, path, err)
		}
		if len(rows) == 0 {
			continue
		}
		return &rawTable{Name: filepath.Base(path), Header: trimAll(rows[0]), Rows: rows[1:]}, nil
	}
	return nil, fmt.Errorf("workbook %s has no data", path)
}

// readDelimited ';' 또는 ',' 구분자를 헤더에서 판별
func readDelimited(path string) (*rawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return parseDelimited(filepath.Base(path), f)
}

func parseDelimited(name string, r io.Reader) (*rawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	comma := ','
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		comma = ';'
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	return &rawTable{Name: name, Header: trimAll(records[0]), Rows: records[1:]}, nil
}

// column resolves the first matching alias (case-insensitive) or returns a SchemaError
func (t *rawTable) column(canonical string, aliases ...string) (int, error) {
	for _, want := range append([]string{canonical}, aliases...) {
		for i, h := range t.Header {
			if strings.EqualFold(h, want) {
				return i, nil
			}
		}
	}
	return -1, &contracts.SchemaError{Table: t.Name, Column: canonical}
}

// cell returns the trimmed cell or "" when the row is short
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	}
	return out
}
