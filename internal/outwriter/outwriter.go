// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"golang.org/x/term"
)

// LogRunHeader prints a concise, 2-line header before a fit or predict run.
func LogRunHeader(w io.Writer, title string, cfg *contract.Config) {
	target := "no input"
	switch len(cfg.InputPaths) {
	case 0:
	case 1:
		target = filepath.Base(cfg.InputPaths[0])
	default:
		target = fmt.Sprintf("%d light curves", len(cfg.InputPaths))
	}

	// Line 1: what is being processed and how wavelengths are mapped
	_, _ = fmt.Fprintf(w, "🔭 %s: %s (Method: %s)\n", title, target, cfg.Method)

	// Line 2: the kernel and the fit settings
	_, _ = fmt.Fprintf(w, "🧮 Kernel: %s, Mean: %s, Workers: %d, Replace: %t\n",
		cfg.Combine, cfg.Mean, cfg.Workers, cfg.Replace)
}

// getTermWidth returns the width override, the detected terminal width, or 80.
func getTermWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTableLabelWidth returns the room left for the source column after reserving
// fixedWidth for the other columns, clamped to [12, 60].
func getMaxTableLabelWidth(cfg *contract.Config, fixedWidth int) int {
	// Reserve space for table borders, separators and padding
	available := getTermWidth(cfg) - fixedWidth - 10
	if available < 12 {
		return 12
	}
	if available > 60 {
		return 60
	}
	return available
}
