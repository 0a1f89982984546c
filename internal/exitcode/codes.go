package exitcode

import (
	"errors"

	"github.com/kacper-wojtaszczyk/jackfruit/bucketsync-go/internal/storage"
)

// Exit codes for the bucketsync CLI.
// The orchestrator can use these to decide retry strategy.
const (
	// Success - command completed successfully
	Success = 0

	// ConfigError - missing or invalid configuration or flags
	// Don't retry: fix the config first
	ConfigError = 1

	// CredentialError - a role in the chain could not be assumed
	// Check role trust policies and the external id
	CredentialError = 2

	// TransferError - list/put/upload/download failed
	// Retry with backoff
	TransferError = 3

	// DeleteError - an object could not be deleted
	// Retry; delete-all may have left the table partially emptied
	DeleteError = 4

	// NotFound - no block file exists for the table yet
	// Not a failure for a first sync: start from the initial block
	NotFound = 5

	// DataError - unreadable input rows, invalid table name or file prefix
	// Don't retry: investigate the input
	DataError = 6

	// ApplicationError - anything else
	ApplicationError = 7
)

// FromError maps an error returned by the storage layer to an exit code.
func FromError(err error) int {
	var (
		credErr     *storage.CredentialError
		transferErr *storage.TransferError
		deleteErr   *storage.DeleteError
		notFound    *storage.NotFoundError
		invalid     *storage.InvalidTableError
		badPrefix   *storage.InvalidPrefixError
	)
	switch {
	case err == nil:
		return Success
	case errors.As(err, &credErr):
		return CredentialError
	case errors.As(err, &deleteErr):
		return DeleteError
	case errors.As(err, &transferErr):
		return TransferError
	case errors.As(err, &notFound):
		return NotFound
	case errors.As(err, &invalid), errors.As(err, &badPrefix):
		return DataError
	default:
		return ApplicationError
	}
}
