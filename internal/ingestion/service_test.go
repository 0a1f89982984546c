package ingestion

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/batch"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

type stubFetcher struct {
	rows      []model.Row
	err       error
	fromBlock uint64
}

func (s *stubFetcher) Fetch(ctx context.Context, table string, fromBlock uint64) ([]model.Row, error) {
	s.fromBlock = fromBlock
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type stubStorage struct {
	last    uint64
	lastErr error
	putErr  error
	calls   []string
	rows    map[string][]model.Row
}

func (s *stubStorage) LastSyncBlock(ctx context.Context, table string) (uint64, error) {
	s.calls = append(s.calls, "last "+table)
	return s.last, s.lastErr
}

func (s *stubStorage) DeleteObject(ctx context.Context, key string) error {
	s.calls = append(s.calls, "delete "+key)
	return nil
}

func (s *stubStorage) PutRows(ctx context.Context, rows []model.Row, key string) error {
	s.calls = append(s.calls, "put "+key)
	if s.putErr != nil {
		return s.putErr
	}
	if s.rows == nil {
		s.rows = map[string][]model.Row{}
	}
	s.rows[key] = rows
	return nil
}

func TestService_Sync_Success(t *testing.T) {
	fetcher := &stubFetcher{rows: []model.Row{{"a": 1}}}
	store := &stubStorage{}
	svc := NewService(fetcher, store)

	b, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow", Block: 12})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if b.State() != batch.Written {
		t.Fatalf("state = %s, want written", b.State())
	}
	if !slices.Equal(store.calls, []string{"put t/cow_12.json"}) {
		t.Fatalf("calls = %v", store.calls)
	}
	if fetcher.fromBlock != 12 {
		t.Fatalf("fetched from block %d, want 12", fetcher.fromBlock)
	}
}

func TestService_Sync_Next(t *testing.T) {
	store := &stubStorage{last: 41}
	svc := NewService(&stubFetcher{rows: []model.Row{{"a": 1}}}, store)

	b, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow", Block: 1, Next: true, DeleteFirst: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if got := b.ObjectKey().Key(); got != "t/cow_42.json" {
		t.Fatalf("key = %s, want t/cow_42.json", got)
	}
	want := []string{"last t", "delete t/cow_42.json", "put t/cow_42.json"}
	if !slices.Equal(store.calls, want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
}

func TestService_Sync_NextFirstRun(t *testing.T) {
	store := &stubStorage{lastErr: &storage.NotFoundError{Table: "t"}}
	svc := NewService(&stubFetcher{rows: []model.Row{{"a": 1}}}, store)

	b, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow", Block: 100, Next: true})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := b.ObjectKey().Key(); got != "t/cow_100.json" {
		t.Fatalf("key = %s, want start block", got)
	}
}

func TestService_Sync_LookupError(t *testing.T) {
	store := &stubStorage{lastErr: &storage.TransferError{Op: "list", Err: errors.New("timeout")}}
	svc := NewService(&stubFetcher{}, store)

	_, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow", Next: true})

	var te *storage.TransferError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransferError, got %v", err)
	}
	if slices.Contains(store.calls, "put t/cow_1.json") {
		t.Fatal("must not write when the last block is unknown")
	}
}

func TestService_Sync_FetchError(t *testing.T) {
	svc := NewService(&stubFetcher{err: errors.New("fetch failed")}, &stubStorage{})

	_, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow"})
	if err == nil || !strings.Contains(err.Error(), "fetch failed") {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestService_Sync_StoreError(t *testing.T) {
	store := &stubStorage{putErr: errors.New("store failed")}
	svc := NewService(&stubFetcher{rows: []model.Row{{"a": 1}}}, store)

	b, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow"})
	if err == nil || !strings.Contains(err.Error(), "store failed") {
		t.Fatalf("expected store error, got %v", err)
	}
	if b == nil || b.State() != batch.Failed {
		t.Fatalf("expected failed batch, got %v", b)
	}
}

func TestService_Sync_EmptyFetchSkips(t *testing.T) {
	store := &stubStorage{}
	svc := NewService(&stubFetcher{}, store)

	b, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "cow", Block: 3})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if b.State() != batch.Skipped || len(store.calls) != 0 {
		t.Fatalf("state = %s, calls = %v", b.State(), store.calls)
	}
}

func TestService_Sync_InvalidNames(t *testing.T) {
	fetcher := &stubFetcher{rows: []model.Row{{"a": 1}}}
	store := &stubStorage{last: 4}
	svc := NewService(fetcher, store)

	_, err := svc.Sync(context.Background(), SyncRequest{Table: "t", Prefix: "a/b", Next: true})
	var ipe *storage.InvalidPrefixError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidPrefixError, got %v", err)
	}

	_, err = svc.Sync(context.Background(), SyncRequest{Table: "..", Prefix: "cow", Next: true})
	var ite *storage.InvalidTableError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTableError, got %v", err)
	}

	if len(store.calls) != 0 {
		t.Fatalf("invalid request reached the store: %v", store.calls)
	}
}
