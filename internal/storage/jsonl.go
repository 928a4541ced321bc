package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"cpamm/internal/model"
)

// JsonlJournal appends receipts and rejections to two JSONL files.
// An empty rejections path discards rejections.
type JsonlJournal struct {
	receiptsPath   string
	rejectionsPath string
	mu             sync.Mutex
}

func NewJsonlJournal(receiptsPath, rejectionsPath string) *JsonlJournal {
	return &JsonlJournal{receiptsPath: receiptsPath, rejectionsPath: rejectionsPath}
}

// PutReceipts appends a batch of journal entries as JSON lines.
func (j *JsonlJournal) PutReceipts(entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]any, len(entries))
	for i := range entries {
		records[i] = entries[i]
	}
	return j.appendLines(j.receiptsPath, records)
}

// PutRejections appends a batch of rejections as JSON lines.
func (j *JsonlJournal) PutRejections(rejections []model.Rejection) error {
	if len(rejections) == 0 || j.rejectionsPath == "" {
		return nil
	}
	records := make([]any, len(rejections))
	for i := range rejections {
		records[i] = rejections[i]
	}
	return j.appendLines(j.rejectionsPath, records)
}

func (j *JsonlJournal) appendLines(path string, records []any) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadJournal calls fn for every entry in a receipts file, in order.
func ReadJournal(path string, fn func(model.JournalEntry) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			trimmed := trimLine(line)
			if len(trimmed) > 0 {
				var entry model.JournalEntry
				if err := json.Unmarshal(trimmed, &entry); err != nil {
					return fmt.Errorf("parse journal line %d: %w", lineNo, err)
				}
				if err := fn(entry); err != nil {
					return err
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read journal: %w", err)
		}
	}
}

func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r' || line[len(line)-1] == ' ') {
		line = line[:len(line)-1]
	}
	return line
}
