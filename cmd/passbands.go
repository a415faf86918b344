package cmd

import (
	"fmt"
	"os"

	"github.com/blackhat-astro/blackhat/core"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/outwriter"
	"github.com/spf13/cobra"
)

// passbandsCmd groups the passband registry commands.
var passbandsCmd = &cobra.Command{
	Use:   "passbands",
	Short: "Inspect and export the passband registry",
	Long: `Inspect the passband registry that maps filter names to central wavelengths.

Every passband carries one central wavelength per method (mean, weighted,
effective) in Angstrom, plus a plot color and marker. The built-in registry
covers the u, g, q, r, i and z filters. Use --passbands to load your own.

Subcommands:
  list - Show every passband and its wavelengths
  init - Write the active registry to a YAML file for editing

Examples:
  # Show the built-in registry
  blackhat passbands list

  # Start a custom registry from the built-in one
  blackhat passbands init my-passbands.yaml
  blackhat fit --passbands my-passbands.yaml curve.csv`,
}

// passbandsListCmd prints the active registry.
var passbandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every registered passband and its central wavelengths",
	Long: `Print the passband registry as a table, CSV or JSON.

Examples:
  # Default text table
  blackhat passbands list

  # JSON for scripting
  blackhat passbands list --output json`,
	Args:    cobra.NoArgs,
	PreRunE: configOnlySetup,
	Run: func(_ *cobra.Command, _ []string) {
		registry, err := core.LoadRegistry(cfg)
		if err != nil {
			contract.LogFatal("Cannot load passband registry", err)
		}
		if err := outwriter.PrintPassbands(registry.Definitions(), cfg); err != nil {
			contract.LogFatal("Cannot print passbands", err)
		}
	},
}

// passbandsInitCmd writes the active registry to a YAML file.
var passbandsInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the active passband registry to a YAML file",
	Long: `Write the active registry (built-in or --passbands) to a YAML file
that can be edited and passed back with --passbands.

Examples:
  blackhat passbands init passbands.yaml
  blackhat passbands init passbands.yaml --force`,
	Args:    cobra.ExactArgs(1),
	PreRunE: configOnlySetupNoInputs,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if err := writeRegistryFile(args[0], force); err != nil {
			contract.LogFatal("Cannot write passband registry", err)
		}
		fmt.Printf("💾 Wrote passband registry to %s\n", args[0])
	},
}

// configOnlySetupNoInputs validates the configuration for commands whose positional
// args are not light curves.
func configOnlySetupNoInputs(cmd *cobra.Command, _ []string) error {
	return validateConfig(cmd, nil)
}

func writeRegistryFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	registry, err := core.LoadRegistry(cfg)
	if err != nil {
		return err
	}
	data, err := registry.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
