package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/pipeline"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	lineHeavy = "═══════════════════════════════════════════════════════════"
	lineLight = "───────────────────────────────────────────────────────────"
)

// signalContext Ctrl+C / SIGTERM 에서 취소되는 context
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// PrintHeader prints a formatted command header
func PrintHeader(title, runID, configHash string) {
	fmt.Println()
	fmt.Println(lineHeavy)
	fmt.Printf("  %s\n", title)
	fmt.Println(lineLight)
	if runID != "" {
		fmt.Printf("  Run ID      : %s\n", runID)
	}
	fmt.Printf("  Config hash : %.12s\n", configHash)
	fmt.Println(lineHeavy)
}

// PrintTrainReport prints the summary table and failed segments
func PrintTrainReport(rep *pipeline.TrainReport) {
	if rep == nil {
		return
	}
	PrintHeader("CCF Training", rep.RunID, rep.ConfigHash)

	if q := rep.Quality; q != nil {
		status := "✅ passed"
		if !q.Passed {
			status = "⚠️  below threshold"
		}
		fmt.Printf("  Data quality: %.3f (%s), valid %d / %d, rejected %d\n",
			q.QualityScore, status, q.ValidRows, q.TotalRows, q.Rejected)
		fmt.Println(lineLight)
	}

	fmt.Printf("  %-7s %7s %7s  %-16s %s\n", "Segment", "R2 RF", "R2 OLS", "Violations", "Features")
	for _, row := range rep.Summary {
		fmt.Printf("  %-7d %7.3f %7.3f  %-16s %s\n", row.Segment, row.R2Ensemble, row.R2Linear, row.ViolationsLabel(), row.FeaturesLabel())
	}
	for _, seg := range rep.Segments {
		if seg.Err != nil {
			fmt.Printf("  ❌ segment %d: %v\n", seg.Segment, seg.Err)
		}
	}
	printFiles(rep.Files)
}

// PrintProjectReport prints per-scenario row counts and skipped segments
func PrintProjectReport(rep *pipeline.ProjectReport, configHash string) {
	if rep == nil {
		return
	}
	PrintHeader(fmt.Sprintf("CCF Projection (chart: %s)", rep.Family.Label()), rep.RunID, configHash)

	for _, res := range rep.Scenarios {
		if res.Err != nil {
			fmt.Printf("  ❌ %-5s %v\n", res.Scenario, res.Err)
			continue
		}
		fmt.Printf("  ✅ %-5s %d rows\n", res.Scenario, len(res.Rows))
		for _, skip := range res.Skipped {
			fmt.Printf("        segment %d skipped: %v\n", skip.Segment, skip.Err)
		}
	}
	printFiles(rep.Files)
}

// PrintStationarity prints one line per ADF result
func PrintStationarity(rep pipeline.StationarityReport, path string) {
	fmt.Println()
	fmt.Println(lineHeavy)
	fmt.Println("  Stationarity (ADF, constant + trend)")
	fmt.Println(lineLight)
	for _, r := range rep.Results() {
		name := r.Series
		if r.Transform != "" {
			name += " [" + r.Transform + "]"
		}
		if r.Status == s1_stationarity.StatusIndeterminate {
			fmt.Printf("  %-14s %-32s %-15s %s\n", r.Kind, name, r.Status, r.Reason)
			continue
		}
		fmt.Printf("  %-14s %-32s %-15s p=%.4f lag=%d n=%d\n", r.Kind, name, r.Status, r.PValue, r.UsedLag, r.NObs)
	}
	for _, d := range rep.Decisions {
		action := "keep raw"
		if d.Substituted {
			action = "HP cycle"
			if d.Forced {
				action += " (forced)"
			}
		}
		fmt.Printf("  segment %d → %s\n", d.Segment, action)
	}
	printFiles([]string{path})
}

// PrintJobStats prints the run summary of every scheduled job and its latest results
func PrintJobStats(stats map[string]scheduler.JobStats) {
	fmt.Println(lineLight)
	for _, st := range stats {
		fmt.Printf("  %s (%s): %d runs, %d ok, %d failed, success %.0f%%\n",
			st.JobName, st.Schedule, st.TotalRuns, st.SuccessCount, st.FailureCount, 100*st.SuccessRate)
		if st.ConsecutiveFailures > 0 {
			fmt.Printf("    ⚠️  %d consecutive failures, last: %s\n", st.ConsecutiveFailures, st.LastError)
		}
		for _, r := range st.Recent {
			mark := "✅"
			if !r.Success {
				mark = "❌"
			}
			fmt.Printf("    %s %s attempts=%d %s\n", mark, r.StartTime.Format("2006-01-02 15:04"), r.Attempts, r.Duration.Round(time.Second))
		}
	}
	fmt.Println(lineLight)
}

func printFiles(files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Println(lineLight)
	for _, f := range files {
		fmt.Printf("  📄 %s\n", f)
	}
	fmt.Println(lineHeavy)
}

// familyFlag --model 값 해석 (RF / OLS / ensemble / linear, 비어 있으면 설정값)
func familyFlag(v string) (contracts.ModelFamily, error) {
	if v == "" {
		return "", nil
	}
	return contracts.ParseFamily(v)
}
