package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile      string
	env             string
	verbose         bool
	modelConfigFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ccf",
	Short: "IFRS 9 forward-looking CCF 예측기",
	Long: `IFRS 9 Forward-looking CCF CLI

세그먼트별 CCF 지표를 거시 변수로 설명하는 두 모델(RF, OLS)을 학습하고
CENT / PESS / OPT 거시 시나리오로 미래 CCF 를 예측합니다.

Pipeline:
  S0 Ingest → S1 DecideTransform → S2 Merge → S3 Train → S4 Persist
  S0 Ingest (scenario) → S5 Project

Usage:
  go run ./cmd/ccf [command]

Examples:
  go run ./cmd/ccf train
  go run ./cmd/ccf project --model OLS
  go run ./cmd/ccf run --model RF
  go run ./cmd/ccf stationarity
  go run ./cmd/ccf schedule`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
	rootCmd.PersistentFlags().StringVar(&modelConfigFile, "model-config", "", "model YAML (default CCF_MODEL_CONFIG, built-in defaults when empty)")
}
