package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sourcedomain "github.com/smallbiznis/sparkload/internal/source/domain"
	"gorm.io/gorm"
)

var ErrUnknownFamily = errors.New("unknown_family")

// Family names a kind of source file.
type Family string

const (
	FamilySong Family = "song"
	FamilyLog  Family = "log"
)

func ParseFamily(s string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(s))); f {
	case FamilySong, FamilyLog:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
}

// Summary reports what one batch wrote.
type Summary struct {
	Family     Family
	Files      int
	Records    int
	Rows       map[string]int64
	Matched    int64
	Unresolved int64
}

type Service interface {
	// Process parses keys from src and loads every derived table through tx.
	Process(ctx context.Context, tx *gorm.DB, family Family, src sourcedomain.Source, keys []string) (Summary, error)
}
