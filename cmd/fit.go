package cmd

import (
	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/spf13/cobra"
)

// fitCmd conditions a Gaussian process on each light curve.
var fitCmd = &cobra.Command{
	Use:   "fit <light-curve>...",
	Short: "Fit the 2D Gaussian process to each light curve.",
	Long: `Condition a Gaussian process over time and wavelength on each light curve
and report the optimized hyperparameters.

The kernel is a Matern-3/2 over time combined with a squared exponential over
wavelength, scaled by an amplitude. Hyperparameters are found by maximizing the
marginal likelihood, starting from --amplitude, --time-scale and --wavelength-scale.

Sources are fitted concurrently by --workers. Fitted hyperparameters are stored
in the fit cache and used as the starting point the next time the same
observations are fitted with the same settings.

Exits non-zero when any source fails to fit; the other rows are still printed.

Examples:
  # Fit a directory of sources
  blackhat fit curves/*.csv

  # Additive kernel with a zero mean
  blackhat fit SN2023abc.csv --kernel-combine additive --mean-function zero

  # Track every run in a database and write the results to Parquet
  blackhat fit curves/*.csv --runs-backend sqlite --output parquet --output-file fits.parquet`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFit(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot fit light curves", err)
		}
	},
}
