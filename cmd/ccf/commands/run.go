package commands

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "학습 → 시나리오 예측 전체 실행",
	Long: `train 과 project 를 같은 run id 로 연속 실행합니다.
학습이 한 세그먼트도 성공하지 못하면 예측은 건너뜁니다.

Example:
  go run ./cmd/ccf run
  go run ./cmd/ccf run --model RF -v`,
	RunE: runAll,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&modelFamily, "model", "", "family drawn in the history+forecast chart (RF|OLS, default report.chart_family)")
}

func runAll(cmd *cobra.Command, args []string) error {
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

	rep, err := a.pipeline.Run(ctx, family)
	if rep != nil {
		PrintTrainReport(rep.Train)
		PrintProjectReport(rep.Project, a.pipeline.ConfigHash())
	}
	return err
}
