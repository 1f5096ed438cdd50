// Package transform derives warehouse rows from decoded records.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	recorddomain "github.com/smallbiznis/sparkload/internal/record/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
)

// ErrInvalidUserID marks a user id that is present but not an integer.
var ErrInvalidUserID = fmt.Errorf("invalid_user_id: %w", recorddomain.ErrInvalidValue)

// DedupeLast keeps the last row for each key. Survivors stay in input order.
func DedupeLast[T any, K comparable](rows []T, key func(T) K) []T {
	last := make(map[K]int, len(rows))
	for i, row := range rows {
		last[key(row)] = i
	}
	out := make([]T, 0, len(last))
	for i, row := range rows {
		if last[key(row)] == i {
			out = append(out, row)
		}
	}
	return out
}

func Songs(records []recorddomain.SongRecord) []domain.Song {
	rows := make([]domain.Song, 0, len(records))
	for _, r := range records {
		rows = append(rows, domain.Song{
			SongID:   r.SongID.Value,
			Title:    r.Title.Value,
			ArtistID: r.ArtistID.Value,
			Year:     int(r.Year.Value),
			Duration: r.Duration.Value,
		})
	}
	return DedupeLast(rows, func(s domain.Song) string { return s.SongID })
}

func Artists(records []recorddomain.SongRecord) []domain.Artist {
	rows := make([]domain.Artist, 0, len(records))
	for _, r := range records {
		rows = append(rows, domain.Artist{
			ArtistID:  r.ArtistID.Value,
			Name:      r.ArtistName.Value,
			Location:  r.ArtistLocation.Ptr(),
			Latitude:  r.ArtistLatitude.Ptr(),
			Longitude: r.ArtistLongitude.Ptr(),
		})
	}
	return DedupeLast(rows, func(a domain.Artist) string { return a.ArtistID })
}

// Users projects user profiles. Rows with any null profile field or an empty
// user id are dropped; a non-integer user id fails the whole batch.
func Users(events []recorddomain.LogEvent) ([]domain.User, error) {
	rows := make([]domain.User, 0, len(events))
	for _, ev := range events {
		if !ev.UserID.Valid || !ev.FirstName.Valid || !ev.LastName.Valid || !ev.Gender.Valid || !ev.Level.Valid {
			continue
		}
		if ev.UserID.Value == "" {
			continue
		}
		id, err := parseUserID(ev.UserID.Value)
		if err != nil {
			return nil, ev.FieldError("userId", err)
		}
		rows = append(rows, domain.User{
			UserID:    id,
			FirstName: ev.FirstName.Value,
			LastName:  ev.LastName.Value,
			Gender:    ev.Gender.Ptr(),
			Level:     ev.Level.Value,
		})
	}
	return DedupeLast(rows, func(u domain.User) int64 { return u.UserID }), nil
}

// TimeRows derives calendar fields from each distinct event timestamp.
func TimeRows(events []recorddomain.LogEvent) []domain.TimeRow {
	rows := make([]domain.TimeRow, 0, len(events))
	for _, ev := range events {
		if !ev.TS.Valid {
			continue
		}
		rows = append(rows, NewTimeRow(ev.TS.Value))
	}
	return DedupeLast(rows, func(r domain.TimeRow) int64 { return r.StartTime.UnixMilli() })
}

// NewTimeRow breaks an epoch-millisecond timestamp into UTC calendar fields.
// Weekday counts Monday as 0.
func NewTimeRow(ms int64) domain.TimeRow {
	t := time.UnixMilli(ms).UTC()
	_, week := t.ISOWeek()
	return domain.TimeRow{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
	}
	return id, nil
}
