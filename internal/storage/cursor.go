package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cursor persists a single resume position: the last journaled request line
// for replay, the last closed window boundary for activity.
type Cursor interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, position uint64) error
}

type cursorRecord struct {
	Position  uint64 `json:"position"`
	UpdatedAt string `json:"updated_at"`
}

// FileCursor keeps the position in a JSON file, replaced atomically on save.
// A nil cursor or an empty path never resumes and discards saves.
type FileCursor struct {
	Path string
}

func (c *FileCursor) Load(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(c.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read cursor %s: %w", c.Path, err)
	}

	var rec cursorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse cursor %s: %w", c.Path, err)
	}
	return rec.Position, true, nil
}

func (c *FileCursor) Save(ctx context.Context, position uint64) error {
	if c == nil || c.Path == "" {
		return nil
	}
	if dir := filepath.Dir(c.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}

	data, err := json.Marshal(cursorRecord{
		Position:  position,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return os.Rename(tmp, c.Path)
}
