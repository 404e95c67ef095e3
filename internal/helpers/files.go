package helpers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveJSON saves data as JSON to a file
func SaveJSON(data interface{}, filepath string) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// EnsureDir ensures a directory exists
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// GenerateTimestamp generates a timestamp string
func GenerateTimestamp() string {
	return now().Format("20060102-150405")
}

// GenerateOutputFilename generates a filename with timestamp
func GenerateOutputFilename(prefix, extension string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, GenerateTimestamp(), extension)
}

// DumpJSON writes data into dir under a timestamped name and returns the path.
// An empty dir disables dumping.
func DumpJSON(dir, prefix string, data interface{}) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, GenerateOutputFilename(prefix, "json"))
	if err := SaveJSON(data, path); err != nil {
		return "", err
	}
	return path, nil
}

// FileExists checks if a file exists
func FileExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return !os.IsNotExist(err)
}

// sinceStart formats the elapsed time since start for progress reports
func sinceStart(start time.Time) time.Duration {
	return now().Sub(start).Round(time.Second)
}

// PrintElapsed prints how long an operation took
func PrintElapsed(start time.Time, name string) {
	PrintInfo("%s finished in %s", name, sinceStart(start))
}
