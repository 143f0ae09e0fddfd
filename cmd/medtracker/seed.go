package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"medication-alerts/internal/common/validation"
	"medication-alerts/internal/directory"
	"medication-alerts/internal/models"
)

// loadSeed registers every patient in a JSON array file. Entries are schema
// checked before decoding; the first bad entry aborts the load.
func loadSeed(ctx context.Context, dir *directory.Service, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("seed file must be a JSON array: %w", err)
	}

	for i, raw := range entries {
		result, err := validation.ValidatePatientJSON(raw)
		if err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if !result.Valid {
			return i, fmt.Errorf("seed entry %d: %s", i, strings.Join(result.GetErrorMessages(), "; "))
		}

		var p models.Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if err := dir.Register(ctx, p); err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}
