// Package attach deletes (and stores) note attachment files.
package attach

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/errors"
)

// Store is a file store keyed by attachment name.
// Delete returns a NOT_FOUND NoteError when the file is already gone.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error
	Delete(ctx context.Context, name string) error
}

// Result summarizes a batch cleanup.
type Result struct {
	Deleted []string `json:"deleted,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Cleaner removes attachment files in bulk. Each file is independent: a failure is
// logged and the batch continues.
type Cleaner struct {
	store Store
	log   zerolog.Logger
}

// NewCleaner creates a Cleaner over store.
func NewCleaner(store Store, log zerolog.Logger) *Cleaner {
	return &Cleaner{store: store, log: log}
}

// DeleteFile removes one file, treating an already-missing file as success.
func (c *Cleaner) DeleteFile(ctx context.Context, name string) error {
	err := c.store.Delete(ctx, name)
	if err != nil && errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteAll removes every named file. Blank and repeated names are skipped.
func (c *Cleaner) DeleteAll(ctx context.Context, names []string) Result {
	var res Result
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		err := c.store.Delete(ctx, name)
		switch {
		case err == nil:
			res.Deleted = append(res.Deleted, name)
		case errors.Is(err, errors.ErrNotFound):
			res.Missing = append(res.Missing, name)
		default:
			res.Failed = append(res.Failed, name)
			c.log.Warn().Err(err).Str("file", name).Msg("attachment delete failed")
		}
	}
	return res
}
