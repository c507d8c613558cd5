package commands

import (
	"github.com/spf13/cobra"
)

var stationarityCmd = &cobra.Command{
	Use:   "stationarity",
	Short: "정상성 검정 리포트만 생성",
	Long: `거시 변수, 차분 물가지수 후보 변환, 세그먼트 원계열/HP 순환의 ADF 결과를
outputs/stationarity.csv 로 내보냅니다. 모델은 학습하지 않습니다.

Example:
  go run ./cmd/ccf stationarity`,
	RunE: runStationarity,
}

func init() {
	rootCmd.AddCommand(stationarityCmd)
}

func runStationarity(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, path, err := a.pipeline.Stationarity(ctx)
	if err != nil {
		return err
	}
	PrintStationarity(rep, path)
	return nil
}
