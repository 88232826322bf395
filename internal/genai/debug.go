package genai

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// debugEntry is one request/response pair written in debug mode.
type debugEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Method    string      `json:"method"`
	Model     string      `json:"model"`
	Params    interface{} `json:"params"`
	Response  interface{} `json:"response"`
}

// writeDebugLog writes entry as a JSON file under stateDir/debug.
func writeDebugLog(stateDir string, entry debugEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	dir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal debug entry: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", entry.Timestamp.Format("20060102T150405.000000000"), entry.Method)
	return os.WriteFile(filepath.Join(dir, name), data, 0644)
}
