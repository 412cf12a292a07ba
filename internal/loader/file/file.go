// Package file loads a corpus from a JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/domain"
	"github.com/kailas-cloud/docsage/internal/domain/corpus"
	"github.com/kailas-cloud/docsage/internal/logger"
)

// Loader reads a JSON array of records, or an object with a "records" array.
type Loader struct {
	path   string
	logger *zap.Logger
}

// New creates a loader for path.
func New(path string, logger *zap.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Load reads and decodes the corpus. Records are returned as-is; validation happens at ingestion.
func (l *Loader) Load(ctx context.Context) ([]corpus.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", l.path, err)
	}
	return Decode(data, logger.FromContext(ctx, l.logger))
}

// Decode parses corpus JSON. Only a malformed document fails; a record that does not
// decode is logged and skipped.
func Decode(data []byte, log *zap.Logger) ([]corpus.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty corpus document", domain.ErrInvalidArgument)
	}

	var raw []json.RawMessage
	if trimmed[0] == '{' {
		var wrapped struct {
			Records []json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: decode corpus: %w", domain.ErrInvalidArgument, err)
		}
		raw = wrapped.Records
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode corpus: %w", domain.ErrInvalidArgument, err)
	}

	records := make([]corpus.Record, 0, len(raw))
	for i, msg := range raw {
		var r corpus.Record
		if err := json.Unmarshal(msg, &r); err != nil {
			log.Warn("Skipping malformed record", zap.Int("position", i), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
