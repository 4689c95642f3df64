// Package keyset loads the canonical keys used as task targets.
package keyset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default is the target set used when none is configured.
const Default = "f,j"

// Load reads one canonical key per line. Blank lines and lines starting
// with # are skipped.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only key set.
			_ = cerr
		}
	}()

	var keys []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys = append(keys, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("key set is empty")
	}
	return Dedupe(keys), nil
}

// Resolve interprets value as a named key set file in dir, or otherwise as a
// comma separated list of keys.
func Resolve(value, dir string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = Default
	}
	if dir != "" && !strings.ContainsAny(value, ",/") {
		path := filepath.Join(dir, value+".txt")
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	keys := Parse(value)
	if len(keys) == 0 {
		return nil, fmt.Errorf("key set %q is empty", value)
	}
	return keys, nil
}
