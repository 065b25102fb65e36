package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadLines reads path and returns its trimmed, non-blank lines in order.
func ReadLines(path string) ([]string, error) {
	file, err := os.Open(path) //nolint:gosec // Store path comes from configuration
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
