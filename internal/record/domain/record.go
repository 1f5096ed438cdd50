package domain

// SongRecord is one line of a song metadata file.
type SongRecord struct {
	SongID          Text  `json:"song_id"`
	Title           Text  `json:"title"`
	ArtistID        Text  `json:"artist_id"`
	Year            Int   `json:"year"`
	Duration        Float `json:"duration"`
	ArtistName      Text  `json:"artist_name"`
	ArtistLocation  Text  `json:"artist_location"`
	ArtistLatitude  Float `json:"artist_latitude"`
	ArtistLongitude Float `json:"artist_longitude"`
}

// Validate checks the fields every song record must carry.
func (r SongRecord) Validate() error {
	switch {
	case !r.SongID.Valid || r.SongID.Value == "":
		return missing("song_id")
	case !r.Title.Valid:
		return missing("title")
	case !r.ArtistID.Valid || r.ArtistID.Value == "":
		return missing("artist_id")
	case !r.ArtistName.Valid:
		return missing("artist_name")
	case !r.Duration.Valid:
		return missing("duration")
	}
	return nil
}

// LogEvent is one line of an activity log file.
type LogEvent struct {
	Page      Text  `json:"page"`
	TS        Int   `json:"ts"`
	SessionID Text  `json:"sessionId"`
	UserID    Text  `json:"userId"`
	FirstName Text  `json:"firstName"`
	LastName  Text  `json:"lastName"`
	Gender    Text  `json:"gender"`
	Level     Text  `json:"level"`
	Song      Text  `json:"song"`
	Artist    Text  `json:"artist"`
	Length    Float `json:"length"`
	Location  Text  `json:"location"`
	UserAgent Text  `json:"userAgent"`

	// Key and Line locate the event in its source file.
	Key  string `json:"-"`
	Line int    `json:"-"`
}

// FieldError reports a problem with one field of the event at its source position.
func (ev LogEvent) FieldError(field string, err error) error {
	return &RecordError{Key: ev.Key, Line: ev.Line, Field: field, Err: err}
}

// Validate checks the fields every event must carry; song-play specific fields
// are checked when facts are derived.
func (e LogEvent) Validate() error {
	switch {
	case !e.Page.Valid:
		return missing("page")
	case !e.TS.Valid:
		return missing("ts")
	}
	return nil
}
