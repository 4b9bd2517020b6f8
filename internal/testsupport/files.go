package testsupport

import (
	"os"
	"strings"
	"testing"
)

// ReadLines returns the lines of a text file without the trailing newline.
func ReadLines(t testing.TB, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// ReadTSV splits each line of a tab-separated file into fields.
func ReadTSV(t testing.TB, path string) [][]string {
	t.Helper()

	lines := ReadLines(t, path)
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, strings.Split(line, "\t"))
	}
	return rows
}
