package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/model"
)

// ObjectStore is one authenticated session against the bucket.
type ObjectStore interface {
	List(ctx context.Context) ([]string, error)
	Put(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	UploadFile(ctx context.Context, key, localPath string) error
	DownloadFile(ctx context.Context, key, localPath string) error
}

// SessionOpener builds an ObjectStore session from temporary credentials.
type SessionOpener func(ctx context.Context, creds Credentials) (ObjectStore, error)

// Client performs bucket operations behind a two hop role chain.
// Every call assumes both roles again and uses a fresh session; nothing is cached.
type Client struct {
	provider CredentialProvider
	open     SessionOpener
	roles    RoleChain
	bucket   string
}

func NewClient(provider CredentialProvider, open SessionOpener, roles RoleChain, bucket string) *Client {
	return &Client{provider: provider, open: open, roles: roles, bucket: bucket}
}

func (c *Client) Bucket() string {
	return c.bucket
}

// assumeChainedSession assumes the internal role with ambient credentials, then the
// external role with the internal role's credentials, and opens a session as the latter.
func (c *Client) assumeChainedSession(ctx context.Context) (ObjectStore, error) {
	internal, err := c.provider.AssumeRole(ctx, Credentials{}, AssumeRoleInput{
		RoleARN:     c.roles.InternalRole,
		SessionName: internalSessionName,
	})
	if err != nil {
		return nil, &CredentialError{Role: c.roles.InternalRole, Err: err}
	}

	external, err := c.provider.AssumeRole(ctx, internal, AssumeRoleInput{
		RoleARN:     c.roles.ExternalRole,
		SessionName: externalSessionName,
		ExternalID:  c.roles.ExternalID,
	})
	if err != nil {
		return nil, &CredentialError{Role: c.roles.ExternalRole, Err: err}
	}

	store, err := c.open(ctx, external)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return store, nil
}

// UploadFile uploads the local file to "{table}/{base name of filename}".
func (c *Client) UploadFile(ctx context.Context, filename, table string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	key := tableKey(table, filename)

	store, err := c.assumeChainedSession(ctx)
	if err != nil {
		return err
	}
	if err := store.UploadFile(ctx, key, filename); err != nil {
		return &TransferError{Op: "upload", Key: key, Err: err}
	}

	slog.DebugContext(ctx, "uploaded file", "file", filename, "key", key, "bucket", c.bucket)
	return nil
}

// DownloadFile fetches "{table}/{base name of filename}" into filename.
func (c *Client) DownloadFile(ctx context.Context, filename, table string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	key := tableKey(table, filename)

	store, err := c.assumeChainedSession(ctx)
	if err != nil {
		return err
	}
	if err := store.DownloadFile(ctx, key, filename); err != nil {
		return &TransferError{Op: "download", Key: key, Err: err}
	}

	slog.DebugContext(ctx, "downloaded file", "file", filename, "key", key, "bucket", c.bucket)
	return nil
}

// PutRows writes rows as newline-delimited JSON to key, replacing whatever is there.
func (c *Client) PutRows(ctx context.Context, rows []model.Row, key string) error {
	store, err := c.assumeChainedSession(ctx)
	if err != nil {
		return err
	}

	body := encodeRows(rows)
	defer body.Close()

	if err := store.Put(ctx, key, body); err != nil {
		return &TransferError{Op: "put", Key: key, Err: err}
	}

	slog.DebugContext(ctx, "put object", "key", key, "rows", len(rows), "bucket", c.bucket)
	return nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	store, err := c.assumeChainedSession(ctx)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, key); err != nil {
		return &DeleteError{Key: key, Err: err}
	}

	slog.DebugContext(ctx, "deleted object", "key", key, "bucket", c.bucket)
	return nil
}

// ListSnapshot lists the whole bucket and groups the keys by table.
func (c *Client) ListSnapshot(ctx context.Context) (*DirectoryIndex, error) {
	store, err := c.assumeChainedSession(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := store.List(ctx)
	if err != nil {
		return nil, &TransferError{Op: "list", Err: err}
	}

	idx := BuildIndex(keys)
	slog.DebugContext(ctx, "loaded bucket snapshot", "bucket", c.bucket, "objects", idx.Len(), "tables", idx.Tables())
	return idx, nil
}

// LastSyncBlock derives the last synced block of table from the object names.
// The bucket is the checkpoint: there is no other record of sync progress.
func (c *Client) LastSyncBlock(ctx context.Context, table string) (uint64, error) {
	idx, err := c.ListSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	block, ok := idx.LastBlock(table)
	if !ok {
		return 0, &NotFoundError{Table: table}
	}
	return block, nil
}

// DeleteAll removes every object under table and returns how many were deleted.
// It is not transactional: on failure the objects deleted so far stay deleted and
// their count is returned alongside the error.
func (c *Client) DeleteAll(ctx context.Context, table string) (int, error) {
	if err := ValidateTable(table); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "emptying table", "table", table, "bucket", c.bucket)

	idx, err := c.ListSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	files := idx.Get(table)
	slog.InfoContext(ctx, "found files to be removed", "table", table, "count", len(files))

	deleted := 0
	for _, f := range files {
		slog.InfoContext(ctx, "deleting file", "key", f.Key())
		if err := c.DeleteObject(ctx, f.Key()); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// ValidateTable rejects names that would not map back to a single first key segment.
func ValidateTable(table string) error {
	if table == "" || table == "." || table == ".." || strings.Contains(table, "/") {
		return &InvalidTableError{Table: table}
	}
	return nil
}

// ValidatePrefix rejects file prefixes that would add a path segment to the key.
func ValidatePrefix(prefix string) error {
	if prefix == "" || strings.Contains(prefix, "/") {
		return &InvalidPrefixError{Prefix: prefix}
	}
	return nil
}

func tableKey(table, filename string) string {
	return table + "/" + filepath.Base(filename)
}

// NewClientFromConfig wires the client for the configured backend: the STS role chain
// in front of S3, or a local directory with no roles to assume.
func NewClientFromConfig(cfg *config.Config) *Client {
	roles := RoleChain{
		InternalRole: cfg.InternalRole,
		ExternalRole: cfg.ExternalRole,
		ExternalID:   cfg.ExternalID,
	}

	if cfg.Store == config.StoreFS {
		fs := NewFSStore(cfg.FSRoot)
		return NewClient(StaticProvider{}, fs.Opener(), roles, cfg.Bucket)
	}

	minioCfg := MinIOConfig{
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.Region,
		Bucket:   cfg.Bucket,
		UseSSL:   cfg.UseSSL,
	}
	return NewClient(NewSTSProvider(cfg.STSEndpoint, cfg.Region), minioCfg.Opener(), roles, cfg.Bucket)
}
