package storage

import (
	"fmt"
)

// CredentialError means a role assumption in the chain was rejected.
type CredentialError struct {
	Role string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("assume role %s: %v", e.Role, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// TransferError wraps a failed list, put, upload or download.
type TransferError struct {
	Op  string
	Key string
	Err error
}

func (e *TransferError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

type DeleteError struct {
	Key string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Key, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// NotFoundError means no indexed block exists for Table yet.
type NotFoundError struct {
	Table string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not determine last sync block for %q: no block files", e.Table)
}

type InvalidTableError struct {
	Table string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name %q", e.Table)
}

type InvalidPrefixError struct {
	Prefix string
}

func (e *InvalidPrefixError) Error() string {
	return fmt.Sprintf("invalid file prefix %q", e.Prefix)
}
