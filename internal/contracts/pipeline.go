package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그와 리포트 row 에서 이 상수를 사용해야 함
//
// 학습 흐름:
//   S0 → S1 → S2 → S3 → S4
//   Ingest  DecideTransform  Merge  Features/Train  Persist
//
// 시나리오 흐름 (독립):
//   S0 (scenario) → S2 Features → S5 Project

// Stage represents a pipeline stage
type Stage string

const (
	// StageIngest S0: 원천 테이블 수집 + 스키마 검증
	// 위치: internal/s0_data/
	StageIngest Stage = "S0_INGEST"

	// StageDecideTransform S1: 정상성 검정 + HP 순환 대체 결정
	// 위치: internal/s1_stationarity/
	StageDecideTransform Stage = "S1_DECIDE_TRANSFORM"

	// StageMerge S2: 세그먼트 + 거시 조인, 세그먼트별 분할
	// 위치: internal/s0_data/segment_repository.go
	StageMerge Stage = "S2_MERGE"

	// StageTrain S3: 피처 생성, 피처 선택, 두 모델 학습, 잔차 진단
	// 위치: internal/s2_features/, internal/s3_training/
	StageTrain Stage = "S3_TRAIN"

	// StagePersist S4: 피처셋/모델 아티팩트 저장 + 요약
	// 위치: internal/artifact/, internal/report/
	StagePersist Stage = "S4_PERSIST"

	// StageProject S5: 시나리오 재생 + 예측
	// 위치: internal/s4_projection/
	StageProject Stage = "S5_PROJECT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageIngest:
		return "S0"
	case StageDecideTransform:
		return "S1"
	case StageMerge:
		return "S2"
	case StageTrain:
		return "S3"
	case StagePersist:
		return "S4"
	case StageProject:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageIngest,
		StageDecideTransform,
		StageMerge,
		StageTrain,
		StagePersist,
		StageProject,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
