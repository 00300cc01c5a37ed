package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint 记录账户资金快照，崩溃重启后据此恢复。
type Checkpoint struct {
	InitialCapital float64   `json:"initial_capital"`
	CurrentCapital float64   `json:"current_capital"`
	DailyPnL       float64   `json:"daily_pnl"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Save writes the checkpoint atomically: temp file in the same directory,
// then rename. A crash mid-write leaves the previous checkpoint intact.
func Save(path string, cp Checkpoint) error {
	if path == "" {
		return fmt.Errorf("state: checkpoint path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("state: ensure dir: %w", err)
		}
	}
	cp.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: commit checkpoint: %w", err)
	}
	return nil
}

// Load reads the checkpoint. A missing file is not an error; ok is false and
// the caller starts from the configured initial capital.
func Load(path string) (Checkpoint, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("state: read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("state: decode checkpoint: %w", err)
	}
	if cp.CurrentCapital <= 0 {
		return Checkpoint{}, false, fmt.Errorf("state: checkpoint has non-positive capital %f", cp.CurrentCapital)
	}
	return cp, true, nil
}
