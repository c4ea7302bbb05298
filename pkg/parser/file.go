package parser

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileParser handles reading URLs from a local file (one URL per line)
type FileParser struct{}

// NewFileParser creates a new file parser
func NewFileParser() *FileParser {
	return &FileParser{}
}

// Parse reads entries from filePath. Titles and dates are unknown until the pages are fetched.
func (p *FileParser) Parse(ctx context.Context, filePath string) ([]Entry, error) {
	lines, err := ReadLines(filePath)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, Entry{Link: line})
	}
	return entries, nil
}

// ReadLines reads non-empty, non-comment lines from a file. Trailing commas are dropped.
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimRight(line, ", \t")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file at line %d: %w", lineNum, err)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no URLs in file %s: %w", filePath, ErrNoEntries)
	}

	return lines, nil
}
