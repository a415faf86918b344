package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blackhat-astro/blackhat/schema"
	"github.com/fatih/color"
)

// Color variables for console output.
var (
	SucceededColor = color.New(color.FgGreen, color.Bold) // SucceededColor marks a fresh fit.
	ReusedColor    = color.New(color.FgCyan)              // ReusedColor marks a fit served from the process cache.
	FailedColor    = color.New(color.FgRed, color.Bold)   // FailedColor marks a fit that returned an error.
)

// GetColorStatus returns a colored fit status label for console output (table).
func GetColorStatus(status schema.FitStatus) string {
	text := string(status)
	switch status {
	case schema.FitSucceeded:
		return SucceededColor.Sprint(text)
	case schema.FitReused:
		return ReusedColor.Sprint(text)
	default:
		return FailedColor.Sprint(text)
	}
}

// GetColorPassband renders a passband name in its registry color.
// Colors that are not "#rrggbb" hex strings leave the name unchanged.
func GetColorPassband(passband, hex string) string {
	r, g, b, ok := parseHexColor(hex)
	if !ok {
		return passband
	}
	return color.RGB(r, g, b).Sprint(passband)
}

func parseHexColor(hex string) (int, int, int, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the fit cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".blackhat_cache.db"
	}
	return filepath.Join(homeDir, ".blackhat_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for the run store.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".blackhat_runs.db"
	}
	return filepath.Join(homeDir, ".blackhat_runs.db")
}

// TruncateLabel truncates a label to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the "..." prefix and at least one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
