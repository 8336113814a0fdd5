package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Export writes the report as a self-contained indented JSON document and
// returns the stored path. An empty path defaults to <dir>/compliance_report_
// <report_id>.json under the given directory.
func Export(r *Report, dir, path string) (string, error) {
	if path == "" {
		if dir == "" {
			dir = "reports"
		}
		path = filepath.Join(dir, fmt.Sprintf("compliance_report_%s.json", r.ReportID))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("report: create directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("report: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("report: rename: %w", err)
	}
	return path, nil
}
