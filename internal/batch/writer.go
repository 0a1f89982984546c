package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

// State is where a batch ended up after Upload.
type State int

const (
	Idle State = iota
	Evaluated
	Skipped
	Written
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Evaluated:
		return "evaluated"
	case Skipped:
		return "skipped"
	case Written:
		return "written"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Store is the part of the bucket client a batch needs.
type Store interface {
	DeleteObject(ctx context.Context, key string) error
	PutRows(ctx context.Context, rows []model.Row, key string) error
}

var _ Store = (*storage.Client)(nil)

// Batch is a set of new rows destined for block Block of Table.
type Batch struct {
	Block  uint64
	Prefix string
	Table  string
	Rows   []model.Row

	state State
}

func New(table, prefix string, block uint64, rows []model.Row) *Batch {
	return &Batch{Block: block, Prefix: prefix, Table: table, Rows: rows}
}

// ObjectKey is where the batch is written.
func (b *Batch) ObjectKey() storage.ObjectKey {
	return storage.BlockKey(b.Table, b.Prefix, b.Block)
}

func (b *Batch) State() State {
	return b.state
}

// Validate checks that Table and Prefix each form a single key segment.
func (b *Batch) Validate() error {
	if err := storage.ValidateTable(b.Table); err != nil {
		return err
	}
	return storage.ValidatePrefix(b.Prefix)
}

// Upload writes the batch to store. An empty batch is skipped without touching the
// store. A table or prefix that is not a single key segment fails before any store
// call. With deleteFirst the existing object is removed before the write, and a
// failed delete aborts the upload.
// Errors are returned to the caller; deciding whether to exit is up to the caller.
func (b *Batch) Upload(ctx context.Context, store Store, deleteFirst bool) (State, error) {
	if err := b.Validate(); err != nil {
		b.state = Failed
		return b.state, err
	}

	count := len(b.Rows)
	b.state = Evaluated

	if count == 0 {
		slog.InfoContext(ctx, "no new records, sync not necessary", "table", b.Table)
		b.state = Skipped
		return b.state, nil
	}

	key := b.ObjectKey().Key()
	slog.InfoContext(ctx, "posting new records", "count", count, "key", key)

	if deleteFirst {
		if err := store.DeleteObject(ctx, key); err != nil {
			slog.ErrorContext(ctx, "failed to delete stale object", "key", key, "error", err)
			b.state = Failed
			return b.state, fmt.Errorf("delete before write: %w", err)
		}
	}

	if err := store.PutRows(ctx, b.Rows, key); err != nil {
		slog.ErrorContext(ctx, "failed to post records", "key", key, "error", err)
		b.state = Failed
		return b.state, fmt.Errorf("write %s: %w", key, err)
	}

	slog.InfoContext(ctx, "post complete", "key", key, "count", count)
	b.state = Written
	return b.state, nil
}
