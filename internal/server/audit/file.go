package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/cipherrelay/internal/filex"
	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

// FileSink appends one JSON object per line to a local file.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenFileSink opens path for appending, creating it and its directory
// when missing.
func OpenFileSink(path string) (*FileSink, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file %s: %w", path, err)
	}
	return &FileSink{f: f, path: path}, nil
}

func (s *FileSink) Append(ctx context.Context, rec models.AuditRecord) error {
	return s.AppendBatch(ctx, []models.AuditRecord{rec})
}

// AppendBatch writes all records with a single write call.
func (s *FileSink) AppendBatch(_ context.Context, recs []models.AuditRecord) error {
	var buf []byte
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode audit record: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Flush forces written records to stable storage.
func (s *FileSink) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Sync()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
