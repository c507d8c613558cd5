package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ifrs9-ccf/internal/artifact"
	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/modelconfig"
	"github.com/wonny/ifrs9-ccf/internal/report"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/pkg/config"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

const historyQuarters = 40

func macroAt(i int) (pib, ipl, tch, infl float64) {
	x := float64(i)
	return 100 + x + 2*math.Sin(x/2), 50 + 0.5*x + math.Cos(x/3), 9 - 0.02*x + 0.3*math.Sin(x/4), 1.5 + 0.2*math.Cos(x/3)
}

// fixtures 2009T1 부터 40분기 이력 + 2024T1 부터 16분기 시나리오
func fixtures(t *testing.T, scenarios ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	var seg strings.Builder
	seg.WriteString("note_ref;cod_prd_ref;Indicateur_moyen_Brut\n")
	p := contracts.MustParsePeriod("2009T1")
	for i := 0; i < historyQuarters; i++ {
		pib, _, tch, _ := macroAt(i)
		for s := 1; s <= 5; s++ {
			v := fmt.Sprintf("%.4f", 0.2+0.05*float64(s)+0.002*pib-0.01*tch+0.01*math.Sin(float64(i*s)))
			if s == 3 && i == 10 {
				v = "abc"
			}
			fmt.Fprintf(&seg, "%d;%s;%s\n", s, p, strings.Replace(v, ".", ",", 1))
		}
		p = p.Next()
	}

	var macro strings.Builder
	macro.WriteString("date,PIB,IPL,TCH,Inflation\n")
	p = contracts.MustParsePeriod("2009T1")
	for i := 0; i < historyQuarters; i++ {
		pib, ipl, tch, infl := macroAt(i)
		end := p.Next().Start().AddDate(0, 0, -1)
		fmt.Fprintf(&macro, "%s,%g,%g,%g,%g\n", end.Format("2006-01-02"), pib, ipl, tch, infl)
		p = p.Next()
	}

	var scen strings.Builder
	scen.WriteString("date")
	for _, name := range scenarios {
		fmt.Fprintf(&scen, ",PIB_%s,IPL_%s,TCH_%s,Inflation_%s", name, name, name, name)
	}
	scen.WriteString("\n")
	p = contracts.MustParsePeriod("2024T1")
	for i := 0; i < 16; i++ {
		end := p.Next().Start().AddDate(0, 0, -1)
		scen.WriteString(end.Format("2006-01-02"))
		for k := range scenarios {
			pib, ipl, tch, infl := macroAt(historyQuarters + i)
			shift := float64(k) - 1
			fmt.Fprintf(&scen, ",%g,%g,%g,%g", pib+shift, ipl, tch-0.2*shift, infl)
		}
		scen.WriteString("\n")
		p = p.Next()
	}

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	return &config.Config{
		Env: "development",
		Paths: config.PathsConfig{
			SegmentFile:  write("segments.csv", seg.String()),
			MacroFile:    write("macro.csv", macro.String()),
			ScenarioFile: write("scenarios.csv", scen.String()),
			ArtifactDir:  filepath.Join(dir, "models"),
			OutputDir:    filepath.Join(dir, "outputs"),
		},
	}
}

func modelConfig(charts bool) *modelconfig.Config {
	cfg := modelconfig.Default()
	cfg.Training.Forest.NEstimators = 10
	cfg.Report.Charts = charts
	return cfg
}

func newPipeline(t *testing.T, env *config.Config, mcfg *modelconfig.Config) *Pipeline {
	t.Helper()
	p, err := New(env, mcfg, Deps{Store: artifact.NewFileStore(env.Paths.ArtifactDir)}, logger.Nop())
	require.NoError(t, err)
	return p
}

func TestPipeline_Train(t *testing.T) {
	env := fixtures(t, "CENT")
	p := newPipeline(t, env, modelConfig(false))

	rep, err := p.Train(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, p.ConfigHash(), rep.ConfigHash)

	// 세그먼트 3의 잘못된 지표 1행은 세그먼트 3만 영향
	require.Len(t, rep.Summary, 5)
	for i, row := range rep.Summary {
		assert.Equal(t, i+1, row.Segment)
		assert.Equal(t, rep.RunID, row.RunID)
		assert.NotEmpty(t, row.Features)
	}
	assert.Equal(t, 1, rep.Quality.Rejected)

	assert.NotEmpty(t, rep.Stationarity.Macro)
	assert.Len(t, rep.Stationarity.Decisions, 5)

	for _, name := range []string{report.SummaryFile, report.StationarityFile} {
		assert.FileExists(t, filepath.Join(env.Paths.OutputDir, name))
	}
	for seg := 1; seg <= 5; seg++ {
		assert.FileExists(t, filepath.Join(env.Paths.ArtifactDir, artifact.FeatureSetKey(seg)))
		for _, f := range contracts.AllFamilies() {
			assert.FileExists(t, filepath.Join(env.Paths.ArtifactDir, artifact.ModelKey(f, seg)))
		}
	}
}

func TestPipeline_Run(t *testing.T) {
	env := fixtures(t, "CENT", "PESS")
	mcfg := modelConfig(true)
	mcfg.Scenarios.Scenarios = []string{"CENT", "PESS", "OPT"}
	p := newPipeline(t, env, mcfg)

	rep, err := p.Run(context.Background(), contracts.FamilyLinear)
	require.NoError(t, err, "a scenario without columns fails only itself")
	require.NotNil(t, rep.Project)
	assert.Equal(t, rep.Train.RunID, rep.Project.RunID)
	assert.Equal(t, contracts.FamilyLinear, rep.Project.Family)

	require.Len(t, rep.Project.Scenarios, 3)
	for _, res := range rep.Project.Scenarios[:2] {
		require.NoError(t, res.Err)
		// 16분기 → 차분 1행, warm-up 4행 제거 → 11기간 × 5세그먼트
		assert.Len(t, res.Rows, 5*11, res.Scenario)
		assert.FileExists(t, filepath.Join(env.Paths.OutputDir, report.PredictionsFile(res.Scenario)))
	}
	assert.ErrorIs(t, rep.Project.Scenarios[2].Err, contracts.ErrSchema)
	assert.NoFileExists(t, filepath.Join(env.Paths.OutputDir, report.PredictionsFile("OPT")))

	assert.FileExists(t, filepath.Join(env.Paths.OutputDir, report.HistoryChartFile(1, contracts.FamilyLinear)))
	assert.FileExists(t, filepath.Join(env.Paths.OutputDir, report.ScenarioChartFile("PESS", 5)))
}

func TestPipeline_ProjectWithoutArtifacts(t *testing.T) {
	env := fixtures(t, "CENT")
	mcfg := modelConfig(false)
	mcfg.Scenarios.Scenarios = []string{"CENT"}
	p := newPipeline(t, env, mcfg)

	rep, err := p.Project(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrArtifactMissing)
	assert.Equal(t, contracts.FamilyEnsemble, rep.Family, "defaults to report.chart_family")
	require.Len(t, rep.Scenarios[0].Skipped, 5)
}

func TestPipeline_Stationarity(t *testing.T) {
	env := fixtures(t, "CENT")
	p := newPipeline(t, env, modelConfig(false))

	st, path, err := p.Stationarity(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Len(t, st.Candidates, 5)
	assert.GreaterOrEqual(t, len(st.Results()), len(st.Macro)+len(st.Candidates)+len(st.Decisions))
	assert.NoFileExists(t, filepath.Join(env.Paths.OutputDir, report.SummaryFile))
}

func TestPipeline_IngestFailure(t *testing.T) {
	env := fixtures(t, "CENT")
	env.Paths.MacroFile = filepath.Join(t.TempDir(), "missing.xlsx")
	p := newPipeline(t, env, modelConfig(false))

	_, err := p.Train(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest")
}

func TestNew_Invalid(t *testing.T) {
	env := fixtures(t, "CENT")

	_, err := New(env, modelConfig(false), Deps{}, logger.Nop())
	assert.Error(t, err, "store is required")

	bad := modelConfig(false)
	bad.Training.Workers = 0
	_, err = New(env, bad, Deps{Store: artifact.NewFileStore(t.TempDir())}, logger.Nop())
	var verr modelconfig.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPipeline_StationarityLevelsUseFullHistory(t *testing.T) {
	env := fixtures(t, "CENT")
	p := newPipeline(t, env, modelConfig(false))

	st, _, err := p.Stationarity(context.Background())
	require.NoError(t, err)

	// 2009T1 부터 40분기 전부 (첫 분기 포함)
	pib := make([]float64, historyQuarters)
	for i := range pib {
		pib[i], _, _, _ = macroAt(i)
	}
	want := p.analyzer.Test(s1_stationarity.KindMacro, "PIB", pib)

	var got *s1_stationarity.Result
	for i := range st.Macro {
		if st.Macro[i].Series == "PIB" {
			got = &st.Macro[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, want.NObs, got.NObs)
	assert.Equal(t, want.Status, got.Status)
	if !math.IsNaN(want.Statistic) {
		assert.InDelta(t, want.Statistic, got.Statistic, 1e-6)
	}
}
