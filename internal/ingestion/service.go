package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/batch"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

// SyncRequest describes one block to write.
type SyncRequest struct {
	Table  string
	Prefix string

	// Block is written as-is unless Next is set. With Next it is only the block used
	// when the table has no block files yet.
	Block uint64
	Next  bool

	DeleteFirst bool
}

// Fetcher retrieves the rows to be written for a table starting at a block.
type Fetcher interface {
	Fetch(ctx context.Context, table string, fromBlock uint64) ([]model.Row, error)
}

// BlockStore is the bucket client as seen by the service.
type BlockStore interface {
	batch.Store
	LastSyncBlock(ctx context.Context, table string) (uint64, error)
}

// Service orchestrates one sync step: resolve block, fetch rows, write the batch.
type Service struct {
	fetcher Fetcher
	store   BlockStore
}

func NewService(fetcher Fetcher, store BlockStore) *Service {
	return &Service{fetcher: fetcher, store: store}
}

// NextBlock returns the block after the last synced one, or start when the table
// has nothing synced yet.
func (s *Service) NextBlock(ctx context.Context, table string, start uint64) (uint64, error) {
	last, err := s.store.LastSyncBlock(ctx, table)
	var nf *storage.NotFoundError
	if errors.As(err, &nf) {
		slog.InfoContext(ctx, "no synced blocks yet", "table", table, "start", start)
		return start, nil
	}
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (s *Service) Sync(ctx context.Context, req SyncRequest) (*batch.Batch, error) {
	if err := batch.New(req.Table, req.Prefix, req.Block, nil).Validate(); err != nil {
		return nil, err
	}

	block := req.Block
	if req.Next {
		next, err := s.NextBlock(ctx, req.Table, req.Block)
		if err != nil {
			return nil, fmt.Errorf("resolve block: %w", err)
		}
		block = next
	}

	rows, err := s.fetcher.Fetch(ctx, req.Table, block)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	b := batch.New(req.Table, req.Prefix, block, rows)
	slog.DebugContext(ctx, "sync started", "table", req.Table, "block", block, "key", b.ObjectKey().Key())

	if _, err := b.Upload(ctx, s.store, req.DeleteFirst); err != nil {
		return b, fmt.Errorf("store: %w", err)
	}

	slog.InfoContext(ctx, "sync complete", "key", b.ObjectKey().Key(), "state", b.State().String())
	return b, nil
}
