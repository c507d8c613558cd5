// Package scheduler cron 기반 주기 재학습/재예측 + 재시도
package scheduler

import (
	"context"
	"time"
)

// historyLimit 작업별 보관 실행 수 (분기 실행 기준 25년치)
const historyLimit = 100

// Job 주기 실행 단위
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule cron 표현식 ("0 6 1 */3 *", "@monthly" 등)
	Schedule() string
}

// JobResult 재시도를 포함한 한 번의 실행 결과
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStats 작업별 실행 요약 (로그, 종료 시 출력)
type JobStats struct {
	JobName             string      `json:"job_name"`
	Schedule            string      `json:"schedule"`
	TotalRuns           int         `json:"total_runs"`
	SuccessCount        int         `json:"success_count"`
	FailureCount        int         `json:"failure_count"`
	SuccessRate         float64     `json:"success_rate"`
	ConsecutiveFailures int         `json:"consecutive_failures"`
	LastRun             *time.Time  `json:"last_run,omitempty"`
	LastSuccess         *time.Time  `json:"last_success,omitempty"`
	LastError           string      `json:"last_error,omitempty"`
	Recent              []JobResult `json:"recent,omitempty"`
}

// jobHistory 최근 historyLimit 개 결과 (오래된 순)
type jobHistory struct {
	results []JobResult
}

func (h *jobHistory) add(r JobResult) {
	h.results = append(h.results, r)
	if len(h.results) > historyLimit {
		h.results = h.results[len(h.results)-historyLimit:]
	}
}

// latest 최근 n 개 복사본
func (h *jobHistory) latest(n int) []JobResult {
	n = min(n, len(h.results))
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// stats 보관 중인 결과로 요약 계산, recent 는 최근 순이 아닌 실행 순
func (h *jobHistory) stats(job Job, recent int) JobStats {
	st := JobStats{
		JobName:   job.Name(),
		Schedule:  job.Schedule(),
		TotalRuns: len(h.results),
		Recent:    h.latest(recent),
	}
	for i := range h.results {
		r := h.results[i]
		st.LastRun = &r.StartTime
		if r.Success {
			st.SuccessCount++
			st.ConsecutiveFailures = 0
			st.LastSuccess = &r.StartTime
			continue
		}
		st.FailureCount++
		st.ConsecutiveFailures++
		st.LastError = r.Error
	}
	if st.TotalRuns > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalRuns)
	}
	return st
}
