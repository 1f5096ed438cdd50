package domain

import (
	"context"
	"errors"
	"io"
)

var (
	ErrInvalidRoot = errors.New("invalid_root")
	ErrNotFound    = errors.New("source_object_not_found")
)

// Source exposes the files under one data root. Keys are root-relative and
// slash-separated.
type Source interface {
	// List returns every key under the root, recursively, in lexical order.
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Root describes the root for logs and errors.
	Root() string
}
