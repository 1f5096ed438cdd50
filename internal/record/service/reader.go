package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smallbiznis/sparkload/internal/record/domain"
	sourcedomain "github.com/smallbiznis/sparkload/internal/source/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxLineBytes = 16 << 20

type Params struct {
	fx.In

	Log *zap.Logger
}

// Reader decodes newline-delimited JSON files into typed records.
type Reader struct {
	log *zap.Logger
}

func NewReader(p Params) *Reader {
	return &Reader{log: p.Log.Named("record.reader")}
}

// ReadSongs decodes every key in order and concatenates the records.
func (r *Reader) ReadSongs(ctx context.Context, src sourcedomain.Source, keys []string) ([]domain.SongRecord, error) {
	var out []domain.SongRecord
	for _, key := range keys {
		err := readLines(ctx, src, key, func(line int, raw []byte) error {
			var rec domain.SongRecord
			if err := decode(raw, &rec); err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	r.log.Debug("song records decoded", zap.Int("files", len(keys)), zap.Int("records", len(out)))
	return out, nil
}

// ReadLogEvents decodes every key in order and concatenates the events.
func (r *Reader) ReadLogEvents(ctx context.Context, src sourcedomain.Source, keys []string) ([]domain.LogEvent, error) {
	var out []domain.LogEvent
	for _, key := range keys {
		err := readLines(ctx, src, key, func(line int, raw []byte) error {
			var ev domain.LogEvent
			if err := decode(raw, &ev); err != nil {
				return err
			}
			if err := ev.Validate(); err != nil {
				return err
			}
			ev.Key, ev.Line = key, line
			out = append(out, ev)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	r.log.Debug("log events decoded", zap.Int("files", len(keys)), zap.Int("events", len(out)))
	return out, nil
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		if errors.Is(err, domain.ErrInvalidValue) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
	}
	return nil
}

// readLines calls fn for each non-blank line of key and annotates failures
// with the key and line number.
func readLines(ctx context.Context, src sourcedomain.Source, key string, fn func(line int, raw []byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := src.Open(ctx, key)
	if err != nil {
		return &domain.RecordError{Key: key, Err: fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)}
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := fn(line, raw); err != nil {
			return annotate(err, key, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return &domain.RecordError{Key: key, Line: line + 1, Err: fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)}
	}
	return nil
}

func annotate(err error, key string, line int) error {
	var recErr *domain.RecordError
	if errors.As(err, &recErr) {
		annotated := *recErr
		annotated.Key = key
		annotated.Line = line
		return &annotated
	}
	return &domain.RecordError{Key: key, Line: line, Err: err}
}
