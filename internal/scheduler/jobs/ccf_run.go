package jobs

import (
	"context"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/pipeline"
	"github.com/wonny/ifrs9-ccf/pkg/logger"
)

// Runner 학습 + 예측 실행기 (pipeline.Pipeline)
type Runner interface {
	Run(ctx context.Context, family contracts.ModelFamily) (*pipeline.RunReport, error)
}

// CCFRunJob retrains every segment and replays the scenarios
// Schedule: CCF_SCHEDULE (기본 분기 첫 달 1일 06:00)
type CCFRunJob struct {
	runner   Runner
	schedule string
	family   contracts.ModelFamily
	logger   *logger.Logger
}

// NewCCFRunJob creates a new scheduled CCF run
func NewCCFRunJob(runner Runner, schedule string, family contracts.ModelFamily, log *logger.Logger) *CCFRunJob {
	return &CCFRunJob{
		runner:   runner,
		schedule: schedule,
		family:   family,
		logger:   log,
	}
}

// Name returns the job name
func (j *CCFRunJob) Name() string {
	return "ccf_run"
}

// Schedule returns the cron schedule
func (j *CCFRunJob) Schedule() string {
	return j.schedule
}

// Run executes train + project
func (j *CCFRunJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled CCF run")

	rep, err := j.runner.Run(ctx, j.family)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"run_id":   rep.Train.RunID,
		"segments": len(rep.Train.Summary),
	}
	if rep.Project != nil {
		fields["predictions"] = rep.Project.Rows()
	}
	j.logger.WithFields(fields).Info("Scheduled CCF run completed")
	return nil
}
