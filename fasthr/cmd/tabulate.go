package cmd

import (
	"os"
	"time"

	cerrors "github.com/astrostat/fasthr/fasthr/common/errors"
	"github.com/astrostat/fasthr/fasthr/common/logging"
	"github.com/astrostat/fasthr/fasthr/store"
	"github.com/astrostat/fasthr/fasthr/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	nMaxFlag     = "nmax"
	mMaxFlag     = "mmax"
	gridSizeFlag = "gridSize"
	psi1SoftFlag = "psi1Soft"
	psi1HardFlag = "psi1Hard"
	workersFlag  = "workers"
)

// tabulateCmd represents the tabulate command.
var tabulateCmd = &cobra.Command{
	Use:   "tabulate",
	Short: "build and save a normalizing table",
	Long: "tabulate evaluates the log incomplete beta integral for every count pair up " +
		"to (nmax, mmax) on a uniform grid and stores the result for later estimate runs.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := buildAndStoreTable(); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(tabulateCmd)

	tabulateCmd.Flags().Int(nMaxFlag, 200,
		"inclusive upper bound on soft-band counts")
	tabulateCmd.Flags().Int(mMaxFlag, 200,
		"inclusive upper bound on hard-band counts")
	tabulateCmd.Flags().Int(gridSizeFlag, 1000,
		"number of grid points over the transformed hardness variable")
	tabulateCmd.Flags().Float64(psi1SoftFlag, 1.0,
		"soft-band prior shape parameter")
	tabulateCmd.Flags().Float64(psi1HardFlag, 1.0,
		"hard-band prior shape parameter")
	tabulateCmd.Flags().Int(workersFlag, 0,
		"number of tabulation goroutines (0 means one per CPU)")

	// bind viper flags
	cerrors.MaybePanic(viper.BindPFlags(tabulateCmd.Flags()))
}

func buildAndStoreTable() error {
	logger := logging.NewDevLogger(getLogLevel(viper.GetString(logLevelFlag)))
	params := table.Params{
		NMax:     viper.GetInt(nMaxFlag),
		MMax:     viper.GetInt(mMaxFlag),
		Psi1Soft: viper.GetFloat64(psi1SoftFlag),
		Psi1Hard: viper.GetFloat64(psi1HardFlag),
		YGrid:    table.UniformGrid(viper.GetInt(gridSizeFlag)),
		Workers:  viper.GetInt(workersFlag),
	}
	logger.Info("building normalizing table",
		zap.Int(nMaxFlag, params.NMax),
		zap.Int(mMaxFlag, params.MMax),
		zap.Int(gridSizeFlag, len(params.YGrid)),
		zap.Float64(psi1SoftFlag, params.Psi1Soft),
		zap.Float64(psi1HardFlag, params.Psi1Hard),
	)
	start := time.Now()
	t, err := table.Build(params)
	if err != nil {
		logger.Error("unable to build table", zap.Error(err))
		return err
	}
	sl, err := store.NewFileStorerLoader(viper.GetString(dataDirFlag))
	if err != nil {
		logger.Error("unable to open table store", zap.Error(err))
		return err
	}
	name := viper.GetString(nameFlag)
	if err := sl.Store(name, t); err != nil {
		logger.Error("unable to store table", zap.Error(err))
		return err
	}
	logger.Info("stored normalizing table",
		zap.String(nameFlag, name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
