package tui

// TUI package provides the terminal output helpers shared by the
// launcher: colors, status prefixes, and TTY detection.

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// =============================================================================
// COLORS
// =============================================================================

const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorGreen  = "\033[0;32m"
	ColorBlue   = "\033[0;34m"
	ColorCyan   = "\033[0;36m"
	ColorYellow = "\033[1;33m"
	ColorRed    = "\033[0;31m"
)

// =============================================================================
// PRINT FUNCTIONS
// =============================================================================

// PrintBanner displays the vibe-local ASCII banner.
func PrintBanner() {
	fmt.Printf("%s%s", ColorCyan, ColorBold)
	fmt.Println(`
 ██╗   ██╗██╗██████╗ ███████╗      ██╗      ██████╗  ██████╗ █████╗ ██╗
 ██║   ██║██║██╔══██╗██╔════╝      ██║     ██╔═══██╗██╔════╝██╔══██╗██║
 ██║   ██║██║██████╔╝█████╗  █████╗██║     ██║   ██║██║     ███████║██║
 ╚██╗ ██╔╝██║██╔══██╗██╔══╝  ╚════╝██║     ██║   ██║██║     ██╔══██║██║
  ╚████╔╝ ██║██████╔╝███████╗      ███████╗╚██████╔╝╚██████╗██║  ██║███████╗
   ╚═══╝  ╚═╝╚═════╝ ╚══════╝      ╚══════╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝╚══════╝`)
	fmt.Print(ColorReset)
}

// PrintHeader prints a styled section header.
func PrintHeader(title string) {
	fmt.Printf("\n%s%s========================================%s\n", ColorBold, ColorCyan, ColorReset)
	fmt.Printf("%s%s       %s%s\n", ColorBold, ColorCyan, title, ColorReset)
	fmt.Printf("%s%s========================================%s\n\n", ColorBold, ColorCyan, ColorReset)
}

// PrintSuccess prints a success message with green [OK] prefix.
func PrintSuccess(msg string) {
	fmt.Printf("%s[OK]%s %s\n", ColorGreen, ColorReset, msg)
}

// PrintInfo prints an info message with blue [INFO] prefix.
func PrintInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", ColorBlue, ColorReset, msg)
}

// PrintWarn prints a warning message with yellow [WARN] prefix.
func PrintWarn(msg string) {
	fmt.Printf("%s[WARN]%s %s\n", ColorYellow, ColorReset, msg)
}

// PrintError prints an error message with red [ERROR] prefix.
func PrintError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", ColorRed, ColorReset, msg)
}

// PrintStep prints a step/action message with cyan >>> prefix.
func PrintStep(msg string) {
	fmt.Printf("%s>>>%s %s\n", ColorCyan, ColorReset, msg)
}

// =============================================================================
// TERMINAL
// =============================================================================

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
