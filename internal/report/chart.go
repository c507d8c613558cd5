package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
)

// ChartSize PNG 크기 (cm)
type ChartSize struct {
	WidthCm  float64
	HeightCm float64
}

// Series 세그먼트 관측 지표 (차트 실적선)
type Series struct {
	Periods []contracts.Period
	Values  []float64
}

var scenarioColors = map[string]color.Color{
	contracts.ScenarioCentral:     color.RGBA{B: 200, A: 255},
	contracts.ScenarioPessimistic: color.RGBA{R: 200, A: 255},
	contracts.ScenarioOptimistic:  color.RGBA{G: 150, A: 255},
}

var familyColors = map[contracts.ModelFamily]color.Color{
	contracts.FamilyEnsemble: color.RGBA{R: 30, G: 90, B: 180, A: 255},
	contracts.FamilyLinear:   color.RGBA{R: 220, G: 120, B: 20, A: 255},
}

// HistoryChartFile segment_<i>_predictions_<FAMILY>.png
func HistoryChartFile(segment int, family contracts.ModelFamily) string {
	return filepath.Join(PredictionsDir, fmt.Sprintf("segment_%d_predictions_%s.png", segment, family.Label()))
}

// ScenarioChartFile scenario_<S>_segment_<i>.png
func ScenarioChartFile(scenario string, segment int) string {
	return filepath.Join(PredictionsDir, fmt.Sprintf("scenario_%s_segment_%d.png", scenario, segment))
}

// WriteHistoryChart draws observed history plus every scenario forecast of one family.
// scenarios 순서는 범례 순서
func WriteHistoryChart(dir string, size ChartSize, segment int, family contracts.ModelFamily,
	history Series, scenarios []string, rows map[string][]contracts.PredictionRow) (string, error) {
	p := newPlot(fmt.Sprintf("Segment %d - CCF (%s): history + forecasts", segment, family.Label()))

	hist := make(plotter.XYs, 0, len(history.Periods))
	for i, period := range history.Periods {
		if i < len(history.Values) && !contracts.IsMissing(history.Values[i]) {
			hist = append(hist, plotter.XY{X: period.Ordinal(), Y: history.Values[i]})
		}
	}
	if len(hist) > 0 {
		line, points, err := plotter.NewLinePoints(hist)
		if err != nil {
			return "", fmt.Errorf("history line: %w", err)
		}
		line.Color = color.Black
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		points.Shape = draw.CircleGlyph{}
		points.Color = color.Black
		p.Add(line, points)
		p.Legend.Add("history", line, points)
	}

	for _, name := range scenarios {
		pts := xys(rows[name], segment, family)
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return "", fmt.Errorf("scenario %s line: %w", name, err)
		}
		c := colorOr(scenarioColors[name], color.Gray{Y: 100})
		line.Color = c
		points.Shape = draw.CrossGlyph{}
		points.Color = c
		p.Add(line, points)
		p.Legend.Add(fmt.Sprintf("%s - %s", name, family.Label()), line, points)
	}

	path := filepath.Join(dir, HistoryChartFile(segment, family))
	return path, save(p, size, path)
}

// WriteScenarioChart draws ensemble vs linear forecasts of one segment under one scenario
func WriteScenarioChart(dir string, size ChartSize, scenario string, segment int, rows []contracts.PredictionRow) (string, error) {
	p := newPlot(fmt.Sprintf("Segment %d - scenario %s: RF vs OLS", segment, scenario))

	for _, family := range contracts.AllFamilies() {
		pts := xys(rows, segment, family)
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return "", fmt.Errorf("%s line: %w", family, err)
		}
		c := familyColors[family]
		line.Color = c
		points.Color = c
		p.Add(line, points)
		p.Legend.Add(family.Label(), line, points)
	}

	path := filepath.Join(dir, ScenarioChartFile(scenario, segment))
	return path, save(p, size, path)
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Quarter"
	p.Y.Label.Text = "CCF"
	p.X.Tick.Marker = quarterTicks{}
	p.Add(plotter.NewGrid())

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

func xys(rows []contracts.PredictionRow, segment int, family contracts.ModelFamily) plotter.XYs {
	pts := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		if r.Segment != segment {
			continue
		}
		v := r.Value(family)
		if contracts.IsMissing(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: r.Period.Ordinal(), Y: v})
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts
}

func save(p *plot.Plot, size ChartSize, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	w := vg.Length(size.WidthCm) * vg.Centimeter
	h := vg.Length(size.HeightCm) * vg.Centimeter
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save chart %s: %w", filepath.Base(path), err)
	}
	return nil
}

func colorOr(c, fallback color.Color) color.Color {
	if c == nil {
		return fallback
	}
	return c
}

// quarterTicks 분기 눈금 "2020T1" (라벨은 최대 약 12개)
type quarterTicks struct{}

func (quarterTicks) Ticks(min, max float64) []plot.Tick {
	if math.IsInf(min, 0) || math.IsInf(max, 0) || max < min {
		return nil
	}
	first := math.Ceil(min*4) / 4
	n := int(math.Round((max-first)*4)) + 1
	step := 1
	for n/step > 12 {
		step++
	}

	var ticks []plot.Tick
	for i := 0; i < n; i++ {
		v := first + float64(i)/4
		year := int(math.Floor(v + 1e-9))
		quarter := int(math.Round((v-float64(year))*4)) + 1
		t := plot.Tick{Value: v}
		if i%step == 0 {
			t.Label = contracts.Period{Year: year, Quarter: quarter}.String()
		}
		ticks = append(ticks, t)
	}
	return ticks
}
