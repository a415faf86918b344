package cmd

import (
	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/spf13/cobra"
)

// summaryCmd prints the per-passband view of each light curve without fitting.
var summaryCmd = &cobra.Command{
	Use:   "summary <light-curve>...",
	Short: "Show observed passbands, counts and central wavelengths.",
	Long: `Load each light curve and print its passband summary without fitting.

For every passband observed in a source, shows:
- Number of observations with a flux value
- Central wavelength for the selected --method
- Plot color and marker from the registry

Light curves are CSV files with time, flux, flux_error and passband columns.
Sources that use a passband missing from the registry fail with an error.

Examples:
  # Summarize one source with its metadata
  blackhat summary SN2023abc.csv --source-meta SN2023abc.json

  # Compare effective wavelengths across a directory of sources
  blackhat summary curves/*.csv --method effective

  # Export to CSV
  blackhat summary curves/*.csv --output csv --output-file summary.csv`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: configOnlySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSummary(rootCtx, cfg); err != nil {
			contract.LogFatal("Cannot summarize light curves", err)
		}
	},
}
