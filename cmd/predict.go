package cmd

import (
	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/spf13/cobra"
)

// predictCmd fits each light curve and samples the posterior flux.
var predictCmd = &cobra.Command{
	Use:   "predict <light-curve>...",
	Short: "Predict flux and variance at any time in any passband.",
	Long: `Fit each light curve, then evaluate the posterior mean and variance of the
flux on a time grid in one or more passbands.

The grid spans --start to --end (default: the observed time range) with --points
evenly spaced times. --times replaces the grid with explicit times. Passbands
only need to be in the registry; they do not have to be observed.

Examples:
  # Interpolate every observed passband
  blackhat predict SN2023abc.csv

  # Predict an unobserved band on a fine grid
  blackhat predict SN2023abc.csv --passband i,z --points 500

  # Query specific epochs as CSV
  blackhat predict SN2023abc.csv --times 59000.5,59010,59020 --output csv`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePredict(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot predict light curves", err)
		}
	},
}
