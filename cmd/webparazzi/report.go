package main

import (
	"fmt"
	"io"

	"github.com/ChoiSG/webparazzi"
	"github.com/fatih/color"
)

var (
	green = color.New(color.FgGreen)
	blue  = color.New(color.FgBlue)
	red   = color.New(color.FgRed)
)

func printResolved(w io.Writer, reachable, broken []string) {
	green.Fprintln(w, "[+] Fetched correct URLs. Taking screenshots.")
	green.Fprintln(w, "This may take a while...")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "======== VALID TARGET ========")
	for _, target := range reachable {
		fmt.Fprintln(w, target)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "======== INVALID TARGET ========")
	for _, target := range broken {
		fmt.Fprintln(w, target)
	}
	fmt.Fprintln(w)
}

func printSaved(w io.Writer, outcomes []webparazzi.Outcome, folder string) {
	var saved, failed, skipped int
	for _, outcome := range outcomes {
		switch {
		case outcome.Path != "":
			saved++
		case outcome.Skipped:
			skipped++
		default:
			failed++
			red.Fprintf(w, "[-] [URL] %s Error: %v\n", outcome.URL, outcome.Err)
		}
	}

	blue.Fprintf(w, "[+] %d screenshots saved in %s (%d failed, %d duplicates skipped)\n", saved, folder, failed, skipped)
}
