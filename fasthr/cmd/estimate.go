package cmd

import (
	"fmt"
	"io"
	"os"

	cerrors "github.com/astrostat/fasthr/fasthr/common/errors"
	"github.com/astrostat/fasthr/fasthr/common/logging"
	"github.com/astrostat/fasthr/fasthr/posterior"
	"github.com/astrostat/fasthr/fasthr/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	softFlag         = "soft"
	hardFlag         = "hard"
	softExposureFlag = "softExposure"
	hardExposureFlag = "hardExposure"
	psi2SoftFlag     = "psi2Soft"
	psi2HardFlag     = "psi2Hard"
	modeFlag         = "mode"

	xiSoftFlag = "xiSoft"
	xiHardFlag = "xiHard"

	bSoftFlag     = "bSoft"
	bHardFlag     = "bHard"
	psi3SoftFlag  = "psi3Soft"
	psi4SoftFlag  = "psi4Soft"
	psi3HardFlag  = "psi3Hard"
	psi4HardFlag  = "psi4Hard"
	ratioSoftFlag = "ratioSoft"
	ratioHardFlag = "ratioHard"

	intervalFlag = "interval"
)

// estimateCmd represents the estimate command.
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "estimate the hardness ratio posterior for one source",
	Long: "estimate loads a stored normalizing table and prints posterior hardness ratio " +
		"quantiles for a single source's counts, exposures, priors, and background model.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := estimateSource(os.Stdout); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().IntP(softFlag, "s", 0,
		"soft-band source-region counts")
	estimateCmd.Flags().IntP(hardFlag, "x", 0,
		"hard-band source-region counts")
	estimateCmd.Flags().Float64(softExposureFlag, 1.0,
		"soft-band exposure")
	estimateCmd.Flags().Float64(hardExposureFlag, 1.0,
		"hard-band exposure")
	estimateCmd.Flags().Float64(psi2SoftFlag, 0,
		"soft-band prior pseudo-exposure")
	estimateCmd.Flags().Float64(psi2HardFlag, 0,
		"hard-band prior pseudo-exposure")
	estimateCmd.Flags().StringP(modeFlag, "m", string(posterior.Fixed),
		"background mode (fixed|unfixed)")
	estimateCmd.Flags().Float64(xiSoftFlag, 0,
		"expected soft-band background counts (fixed mode)")
	estimateCmd.Flags().Float64(xiHardFlag, 0,
		"expected hard-band background counts (fixed mode)")
	estimateCmd.Flags().Int(bSoftFlag, 0,
		"soft-band background-region counts (unfixed mode)")
	estimateCmd.Flags().Int(bHardFlag, 0,
		"hard-band background-region counts (unfixed mode)")
	estimateCmd.Flags().Float64(psi3SoftFlag, 1.0,
		"soft-band background prior shape (unfixed mode)")
	estimateCmd.Flags().Float64(psi4SoftFlag, 0,
		"soft-band background prior pseudo-exposure (unfixed mode)")
	estimateCmd.Flags().Float64(psi3HardFlag, 1.0,
		"hard-band background prior shape (unfixed mode)")
	estimateCmd.Flags().Float64(psi4HardFlag, 0,
		"hard-band background prior pseudo-exposure (unfixed mode)")
	estimateCmd.Flags().Float64(ratioSoftFlag, 1.0,
		"soft-band source-to-background equivalent exposure ratio (unfixed mode)")
	estimateCmd.Flags().Float64(ratioHardFlag, 1.0,
		"hard-band source-to-background equivalent exposure ratio (unfixed mode)")
	estimateCmd.Flags().Float64(intervalFlag, 0.68,
		"credible interval mass to report")

	// bind viper flags
	cerrors.MaybePanic(viper.BindPFlags(estimateCmd.Flags()))
}

func estimateSource(out io.Writer) error {
	logger := logging.NewDevLogger(getLogLevel(viper.GetString(logLevelFlag)))
	obs := posterior.Observation{
		Soft:         viper.GetInt(softFlag),
		Hard:         viper.GetInt(hardFlag),
		SoftExposure: viper.GetFloat64(softExposureFlag),
		HardExposure: viper.GetFloat64(hardExposureFlag),
	}
	mode := posterior.Mode(viper.GetString(modeFlag))

	sl, err := store.NewFileStorerLoader(viper.GetString(dataDirFlag))
	if err != nil {
		logger.Error("unable to open table store", zap.Error(err))
		return err
	}
	t, err := sl.Load(viper.GetString(nameFlag))
	if err != nil {
		logger.Error("unable to load table", zap.Error(err))
		return err
	}
	priors := posterior.Priors{
		Psi1Soft: t.Psi1Soft(),
		Psi2Soft: viper.GetFloat64(psi2SoftFlag),
		Psi1Hard: t.Psi1Hard(),
		Psi2Hard: viper.GetFloat64(psi2HardFlag),
	}

	est, err := posterior.NewEstimator(obs, priors, backgroundOptions(mode)...)
	if err != nil {
		logger.Error("invalid source parameters", zap.Error(err))
		return err
	}
	if err := est.Init(mode); err != nil {
		logger.Error("unable to initialize background mode", zap.Error(err))
		return err
	}
	curve, err := est.CDF(t)
	if err != nil {
		logger.Error("unable to compute posterior", zap.Error(err))
		return err
	}

	mass := viper.GetFloat64(intervalFlag)
	median := curve.Median()
	lo, hi, err := curve.Interval(mass)
	if err != nil {
		logger.Error("invalid credible interval mass", zap.Error(err))
		return err
	}
	logger.Info("computed hardness ratio posterior",
		zap.Int(softFlag, obs.Soft),
		zap.Int(hardFlag, obs.Hard),
		zap.String(modeFlag, string(mode)),
		zap.Float64("median", median),
	)
	fmt.Fprintf(out, "HR = %.4f (+%.4f / -%.4f) [%.0f%% credible interval]\n",
		median, hi-median, median-lo, mass*100)
	return nil
}

func backgroundOptions(mode posterior.Mode) []posterior.Option {
	switch mode {
	case posterior.Fixed:
		return []posterior.Option{posterior.WithFixedBackground(posterior.FixedBackground{
			XiSoft: viper.GetFloat64(xiSoftFlag),
			XiHard: viper.GetFloat64(xiHardFlag),
		})}
	case posterior.Unfixed:
		return []posterior.Option{posterior.WithUnfixedBackground(posterior.UnfixedBackground{
			BSoft:     viper.GetInt(bSoftFlag),
			BHard:     viper.GetInt(bHardFlag),
			Psi3Soft:  viper.GetFloat64(psi3SoftFlag),
			Psi4Soft:  viper.GetFloat64(psi4SoftFlag),
			Psi3Hard:  viper.GetFloat64(psi3HardFlag),
			Psi4Hard:  viper.GetFloat64(psi4HardFlag),
			RatioSoft: viper.GetFloat64(ratioSoftFlag),
			RatioHard: viper.GetFloat64(ratioHardFlag),
		})}
	}
	// let Init report the unknown mode
	return nil
}
