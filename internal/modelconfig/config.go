// Package modelconfig CCF 모델 실행 설정 (YAML, KnownFields + Validate + Hash)
package modelconfig

import (
	"time"

	"github.com/wonny/ifrs9-ccf/internal/s0_data/quality"
	"github.com/wonny/ifrs9-ccf/internal/s1_stationarity"
	"github.com/wonny/ifrs9-ccf/internal/s3_training"
	"github.com/wonny/ifrs9-ccf/internal/s4_projection"
)

// Config는 학습 + 시나리오 예측 실행의 전체 설정
type Config struct {
	Meta         Meta                   `yaml:"meta" json:"meta"`
	History      History                `yaml:"history" json:"history"`
	Quality      quality.Config         `yaml:"quality" json:"quality"`
	Stationarity s1_stationarity.Config `yaml:"stationarity" json:"stationarity"`
	Training     s3_training.Config     `yaml:"training" json:"training"`
	Scenarios    s4_projection.Config   `yaml:"scenarios" json:"scenarios"`
	Report       Report                 `yaml:"report" json:"report"`
	Schedule     Schedule               `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	ModelID string `yaml:"model_id" json:"model_id"`
	Version string `yaml:"version" json:"version"`
}

// History 학습 거시 이력 범위
type History struct {
	CutoffPeriod string `yaml:"cutoff_period" json:"cutoff_period"` // "2009T1"
}

// Report 출력 설정
type Report struct {
	ChartFamily   string  `yaml:"chart_family" json:"chart_family"` // ensemble | linear
	ChartWidthCm  float64 `yaml:"chart_width_cm" json:"chart_width_cm"`
	ChartHeightCm float64 `yaml:"chart_height_cm" json:"chart_height_cm"`
	Charts        bool    `yaml:"charts" json:"charts"`
}

// Schedule 주기 실행 재시도 정책
type Schedule struct {
	Retries    int           `yaml:"retries" json:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// Default returns the configuration used when no YAML file is given
func Default() *Config {
	return &Config{
		Meta:         Meta{ModelID: "ifrs9_ccf", Version: "1"},
		History:      History{CutoffPeriod: "2009T1"},
		Quality:      quality.DefaultConfig(),
		Stationarity: s1_stationarity.DefaultConfig(),
		Training:     s3_training.DefaultConfig(),
		Scenarios:    s4_projection.DefaultConfig(),
		Report: Report{
			ChartFamily:   "ensemble",
			ChartWidthCm:  24,
			ChartHeightCm: 12,
			Charts:        true,
		},
		Schedule: Schedule{Retries: 2, RetryDelay: 5 * time.Minute},
	}
}
