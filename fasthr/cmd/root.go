package cmd

import (
	"fmt"
	"os"

	cerrors "github.com/astrostat/fasthr/fasthr/common/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envVarPrefix = "FASTHR"

	dataDirFlag  = "dataDir"
	nameFlag     = "name"
	logLevelFlag = "logLevel"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "fasthr",
	Short: "fasthr estimates Bayesian X-ray hardness ratios",
	Long: "fasthr pre-tabulates the incomplete beta normalizing integral of the " +
		"Gamma-Poisson hardness ratio model and evaluates per-source posterior " +
		"distributions against the table.",
}

// Execute is the main entrypoint for the fasthr CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringP(dataDirFlag, "d", defaultDataDir(),
		"local directory for stored tables")
	RootCmd.PersistentFlags().StringP(nameFlag, "t", "default",
		"name of the stored table")
	RootCmd.PersistentFlags().StringP(logLevelFlag, "l", zap.InfoLevel.String(),
		"log level")

	// bind viper flags
	viper.SetEnvPrefix(envVarPrefix) // look for env vars with "FASTHR_" prefix
	viper.AutomaticEnv()             // read in environment variables that match
	cerrors.MaybePanic(viper.BindPFlags(RootCmd.PersistentFlags()))
}

func defaultDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func getLogLevel(level string) zapcore.Level {
	var logLevel zapcore.Level
	if err := logLevel.Set(level); err != nil {
		return zapcore.InfoLevel
	}
	return logLevel
}
