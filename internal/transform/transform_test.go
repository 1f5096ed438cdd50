package transform

import (
	"errors"
	"testing"
	"time"

	recorddomain "github.com/smallbiznis/sparkload/internal/record/domain"
	"github.com/smallbiznis/sparkload/internal/warehouse/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(v string) recorddomain.Text { return recorddomain.NewText(v) }

func songRecord(id string, year int64) recorddomain.SongRecord {
	return recorddomain.SongRecord{
		SongID:     text(id),
		Title:      text("Title " + id),
		ArtistID:   text("AR" + id),
		Year:       recorddomain.NewInt(year),
		Duration:   recorddomain.NewFloat(200),
		ArtistName: text("Artist " + id),
	}
}

func event(page, user string, ts int64) recorddomain.LogEvent {
	return recorddomain.LogEvent{
		Page:      text(page),
		TS:        recorddomain.NewInt(ts),
		SessionID: text("139"),
		UserID:    text(user),
		FirstName: text("Kaylee"),
		LastName:  text("Summers"),
		Gender:    text("F"),
		Level:     text("free"),
		Song:      text("You Gotta Be"),
		Artist:    text("Des'ree"),
		Length:    recorddomain.NewFloat(246.3),
		Location:  text("Phoenix-Mesa-Scottsdale, AZ"),
		UserAgent: text("Mozilla/5.0"),
	}
}

func TestDedupeLastKeepsLastOccurrenceInOrder(t *testing.T) {
	got := DedupeLast([]string{"a1", "b1", "a2", "c1", "b2"}, func(s string) byte { return s[0] })
	assert.Equal(t, []string{"a2", "c1", "b2"}, got)
}

func TestSongsLastFileWins(t *testing.T) {
	songs := Songs([]recorddomain.SongRecord{songRecord("SOAAA", 1999), songRecord("SOBBB", 2000), songRecord("SOAAA", 2004)})

	require.Len(t, songs, 2)
	assert.Equal(t, "SOBBB", songs[0].SongID)
	assert.Equal(t, "SOAAA", songs[1].SongID)
	assert.Equal(t, 2004, songs[1].Year)
}

func TestSongsNullYearLoadsAsZero(t *testing.T) {
	rec := songRecord("SOAAA", 0)
	rec.Year = recorddomain.Int{}
	assert.Equal(t, 0, Songs([]recorddomain.SongRecord{rec})[0].Year)
}

func TestArtistsKeepNullableColumns(t *testing.T) {
	rec := songRecord("SOAAA", 2000)
	rec.ArtistLatitude = recorddomain.NewFloat(35.14)
	later := rec
	later.ArtistLocation = text("Memphis, TN")

	artists := Artists([]recorddomain.SongRecord{rec, later})
	require.Len(t, artists, 1)
	require.NotNil(t, artists[0].Location)
	assert.Equal(t, "Memphis, TN", *artists[0].Location)
	assert.Nil(t, artists[0].Longitude)
	assert.InDelta(t, 35.14, *artists[0].Latitude, 1e-9)
}

func TestUsersFiltersAndDedupes(t *testing.T) {
	paid := event("NextSong", "8", 2)
	paid.Level = text("paid")
	noGender := event("NextSong", "9", 3)
	noGender.Gender = recorddomain.Text{}

	users, err := Users([]recorddomain.LogEvent{
		event("NextSong", "8", 1),
		event("NextSong", "", 1),
		noGender,
		paid,
	})
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, int64(8), users[0].UserID)
	assert.Equal(t, "paid", users[0].Level)
}

func TestUsersRejectsNonIntegerID(t *testing.T) {
	ev := event("NextSong", "eight", 1)
	ev.Key, ev.Line = "a.json", 7

	_, err := Users([]recorddomain.LogEvent{ev})
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.ErrorIs(t, err, recorddomain.ErrInvalidValue)

	var recErr *recorddomain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "a.json", recErr.Key)
	assert.Equal(t, 7, recErr.Line)
}

func TestNewTimeRow(t *testing.T) {
	// 2018-11-05 17:46:40 UTC, a Monday in ISO week 45.
	row := NewTimeRow(1541440000000)

	assert.Equal(t, domain.TimeRow{
		StartTime: time.Date(2018, 11, 5, 17, 46, 40, 0, time.UTC),
		Hour:      17,
		Day:       5,
		Week:      45,
		Month:     11,
		Year:      2018,
		Weekday:   0,
	}, row)

	assert.Equal(t, 6, NewTimeRow(time.Date(2018, 11, 4, 0, 0, 0, 0, time.UTC).UnixMilli()).Weekday)
	assert.Equal(t, 1, NewTimeRow(time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli()).Week)
}

func TestTimeRowsDedupe(t *testing.T) {
	rows := TimeRows([]recorddomain.LogEvent{event("NextSong", "8", 1541440000000), event("NextSong", "9", 1541440000000)})
	assert.Len(t, rows, 1)
}

func TestSongPlaysFiltersPage(t *testing.T) {
	events := []recorddomain.LogEvent{event("Home", "8", 1), event("NextSong", "8", 2), event("Logout", "8", 3)}

	plays := SongPlays(events, "")
	require.Len(t, plays, 1)
	assert.Equal(t, int64(2), plays[0].TS.Value)

	assert.Len(t, SongPlays(events, "Home"), 1)
}

func TestStagingRows(t *testing.T) {
	ev := event("NextSong", "8", 1541440000000)
	ev.TS = recorddomain.Int{Value: 1541440000000, Raw: "1541440000000", Valid: true}

	rows, err := StagingRows([]recorddomain.LogEvent{ev})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "139-1541440000000", row.SongplayID)
	assert.Equal(t, int64(8), row.UserID)
	assert.True(t, row.StartTime.Equal(time.UnixMilli(1541440000000)))
	assert.Equal(t, "Des'ree", *row.Artist)
	assert.InDelta(t, 246.3, *row.Length, 1e-9)
}

func TestStagingRowsMissingSession(t *testing.T) {
	ev := event("NextSong", "8", 1)
	ev.SessionID = recorddomain.Text{}

	_, err := StagingRows([]recorddomain.LogEvent{ev})
	var recErr *recorddomain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "sessionId", recErr.Field)
	assert.ErrorIs(t, err, recorddomain.ErrMissingField)
}

func TestStagingRowsMissingUser(t *testing.T) {
	ev := event("NextSong", "", 1)
	ev.Key, ev.Line = "2018/11/2018-11-05-events.json", 2

	_, err := StagingRows([]recorddomain.LogEvent{event("NextSong", "8", 1), ev})
	assert.ErrorIs(t, err, recorddomain.ErrMissingField)

	var recErr *recorddomain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "2018/11/2018-11-05-events.json", recErr.Key)
	assert.Equal(t, 2, recErr.Line)
	assert.Equal(t, "userId", recErr.Field)
	assert.Equal(t, `2018/11/2018-11-05-events.json:2: field "userId": missing_field`, err.Error())
}
