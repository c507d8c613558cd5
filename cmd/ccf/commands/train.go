package commands

import (
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "세그먼트별 RF/OLS 학습 + 아티팩트 저장",
	Long: `세그먼트 지표와 거시 이력을 읽어 5개 세그먼트 모델을 학습합니다.

단계:
  S0 Ingest          세그먼트 CSV + 거시 이력 (history.cutoff_period 이후)
  S1 DecideTransform ADF 검정, 비정상 세그먼트는 HP 순환 성분으로 대체
  S2 Merge           기간 키 left join + 품질 게이트
  S3 Train           피처 생성, 중요도 선택, RF/OLS 학습, 잔차 진단
  S4 Persist         models/ 아티팩트 + outputs/resume_modelisation.csv

Example:
  go run ./cmd/ccf train
  go run ./cmd/ccf train --model-config configs/ccf.yaml`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.pipeline.Train(ctx)
	PrintTrainReport(rep)
	return err
}
