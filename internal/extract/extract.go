// Package extract locates persisted reproducer files in captured fuzzer output.
package extract

import (
	"path/filepath"
	"regexp"
)

// libfuzzer prints this line when it persists a crashing input.
var testCaseRe = regexp.MustCompile(`\bTest unit written to \./([^\s]+)`)

// TestCase scans raw fuzzer output for the first persisted reproducer marker
// and resolves it against the output directory the sandbox mounted. It
// returns an empty string when no marker is present; malformed input is not
// an error.
func TestCase(output, outDir string) string {
	match := testCaseRe.FindStringSubmatch(output)
	if match == nil {
		return ""
	}
	return filepath.Join(outDir, match[1])
}
