package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ifrs9-ccf/internal/scheduler"
	"github.com/wonny/ifrs9-ccf/internal/scheduler/jobs"
)

// recentRuns 종료 시 출력할 최근 실행 수
const recentRuns = 5

var (
	// schedule 플래그
	scheduleExpr string
	runNow       bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "cron 주기로 학습 + 예측 반복 실행",
	Long: `CCF_SCHEDULE (기본 "0 6 1 */3 *", 분기 첫 달 1일 06:00) 마다
run 과 같은 학습 → 예측을 실행합니다. 실패 시 schedule.retries 만큼
schedule.retry_delay 간격으로 재시도하며 스키마 오류는 재시도하지 않습니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.

Example:
  go run ./cmd/ccf schedule
  go run ./cmd/ccf schedule --cron "@monthly" --now`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleExpr, "cron", "", "cron expression (default CCF_SCHEDULE)")
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "run once immediately before waiting for the schedule")
	scheduleCmd.Flags().StringVar(&modelFamily, "model", "", "family drawn in the history+forecast chart (RF|OLS, default report.chart_family)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	family, err := familyFlag(modelFamily)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	expr := a.cfg.Schedule
	if scheduleExpr != "" {
		expr = scheduleExpr
	}

	sched := scheduler.New(a.log, scheduler.Options{
		MaxRetries: a.model.Schedule.Retries,
		RetryDelay: a.model.Schedule.RetryDelay,
	})
	job := jobs.NewCCFRunJob(a.pipeline, expr, family, a.log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("=== CCF Scheduler ===")
	sched.Start()

	next, err := sched.Next(job.Name())
	if err == nil {
		fmt.Printf("✅ Scheduler started: %s (%s), next run %s\n", job.Name(), expr, next.Format("2006-01-02 15:04"))
	}
	if runNow {
		res, err := sched.RunJob(job.Name())
		if err != nil {
			fmt.Printf("❌ Immediate run: %v\n", err)
		} else {
			fmt.Printf("Immediate run: success=%t attempts=%d %s\n", res.Success, res.Attempts, res.Error)
		}
	}
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	PrintJobStats(sched.JobStats(recentRuns))
	fmt.Println("Scheduler stopped")
	return nil
}
