package main

import (
	"fmt"
	"runtime"

	"github.com/kn1cht/vibe-local/internal/tui"
)

// Version is set at build time via ldflags
var Version = "v0.1.0"

// PrintVersion prints the current version
func PrintVersion() {
	tui.PrintBanner()
	fmt.Printf("vibe-local %s\n", Version)
	fmt.Printf("Runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
