package transform

import (
	"time"

	recorddomain "github.com/smallbiznis/sparkload/internal/record/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
)

// DefaultSongPlayPage is the page value of a song-play event.
const DefaultSongPlayPage = "NextSong"

// SongPlays keeps the events whose page equals page.
func SongPlays(events []recorddomain.LogEvent, page string) []recorddomain.LogEvent {
	if page == "" {
		page = DefaultSongPlayPage
	}
	out := make([]recorddomain.LogEvent, 0, len(events))
	for _, ev := range events {
		if ev.Page.Valid && ev.Page.Value == page {
			out = append(out, ev)
		}
	}
	return out
}

// SongplayID joins the session id and the timestamp as encoded.
func SongplayID(ev recorddomain.LogEvent) string {
	return ev.SessionID.Value + "-" + ev.TS.Raw
}

// StagingRows builds unresolved songplays from song-play events. Duplicate ids
// keep the last event.
func StagingRows(events []recorddomain.LogEvent) ([]domain.SongplayStaging, error) {
	rows := make([]domain.SongplayStaging, 0, len(events))
	for _, ev := range events {
		if !ev.SessionID.Valid || ev.SessionID.Value == "" {
			return nil, ev.FieldError("sessionId", recorddomain.ErrMissingField)
		}
		if !ev.UserID.Valid || ev.UserID.Value == "" {
			return nil, ev.FieldError("userId", recorddomain.ErrMissingField)
		}
		userID, err := parseUserID(ev.UserID.Value)
		if err != nil {
			return nil, ev.FieldError("userId", err)
		}
		rows = append(rows, domain.SongplayStaging{
			SongplayID: SongplayID(ev),
			StartTime:  time.UnixMilli(ev.TS.Value).UTC(),
			UserID:     userID,
			Level:      ev.Level.Ptr(),
			Song:       ev.Song.Ptr(),
			Artist:     ev.Artist.Ptr(),
			SessionID:  ev.SessionID.Value,
			Location:   ev.Location.Ptr(),
			UserAgent:  ev.UserAgent.Ptr(),
			Length:     ev.Length.Ptr(),
		})
	}
	return DedupeLast(rows, func(r domain.SongplayStaging) string { return r.SongplayID }), nil
}
