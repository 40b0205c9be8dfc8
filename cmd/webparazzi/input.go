package main

import (
	"strings"

	"github.com/root4loot/goutils/fileutil"
)

// readFileLines reads a file line by line, trimming whitespace. Blank lines
// are kept as empty strings.
func readFileLines(path string) ([]string, error) {
	lines, err := fileutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines, nil
}
