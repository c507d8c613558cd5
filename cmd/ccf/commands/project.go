package commands

import (
	"github.com/spf13/cobra"
)

var (
	// project / run 플래그
	modelFamily string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "저장된 모델로 거시 시나리오 예측",
	Long: `시나리오 테이블(PIB_<S>, IPL_<S>, TCH_<S>, Inflation_<S>)을 학습과 같은
피처 경로로 재생하고 세그먼트별 RF/OLS 예측을 내보냅니다.

산출물:
  outputs/predictions/predictions_<S>.csv
  outputs/predictions/segment_<i>_predictions_<RF|OLS>.png (--model 계열)
  outputs/predictions/scenario_<S>_segment_<i>.png

Example:
  go run ./cmd/ccf project
  go run ./cmd/ccf project --model OLS`,
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.Flags().StringVar(&modelFamily, "model", "", "family drawn in the history+forecast chart (RF|OLS, default report.chart_family)")
}

func runProject(cmd *cobra.Command, args []string) error {
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

	rep, err := a.pipeline.Project(ctx, family)
	PrintProjectReport(rep, a.pipeline.ConfigHash())
	return err
}
