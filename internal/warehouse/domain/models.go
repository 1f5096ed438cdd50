package domain

import "time"

// Field order is the column order of the matching schema table.

type Song struct {
	SongID   string  `gorm:"column:song_id;primaryKey"`
	Title    string  `gorm:"column:title"`
	ArtistID string  `gorm:"column:artist_id"`
	Year     int     `gorm:"column:year"`
	Duration float64 `gorm:"column:duration"`
}

func (Song) TableName() string { return "songs" }

type Artist struct {
	ArtistID  string   `gorm:"column:artist_id;primaryKey"`
	Name      string   `gorm:"column:name"`
	Location  *string  `gorm:"column:location"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
}

func (Artist) TableName() string { return "artists" }

type User struct {
	UserID    int64   `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	FirstName string  `gorm:"column:first_name"`
	LastName  string  `gorm:"column:last_name"`
	Gender    *string `gorm:"column:gender"`
	Level     string  `gorm:"column:level"`
}

func (User) TableName() string { return "users" }

type TimeRow struct {
	StartTime time.Time `gorm:"column:start_time;primaryKey"`
	Hour      int       `gorm:"column:hour"`
	Day       int       `gorm:"column:day"`
	Week      int       `gorm:"column:week"`
	Month     int       `gorm:"column:month"`
	Year      int       `gorm:"column:year"`
	Weekday   int       `gorm:"column:weekday"`
}

func (TimeRow) TableName() string { return "time" }

type Songplay struct {
	SongplayID string    `gorm:"column:songplay_id;primaryKey"`
	StartTime  time.Time `gorm:"column:start_time"`
	UserID     int64     `gorm:"column:user_id"`
	Level      *string   `gorm:"column:level"`
	SongID     *string   `gorm:"column:song_id"`
	ArtistID   *string   `gorm:"column:artist_id"`
	SessionID  string    `gorm:"column:session_id"`
	Location   *string   `gorm:"column:location"`
	UserAgent  *string   `gorm:"column:user_agent"`
}

func (Songplay) TableName() string { return "songplays" }

// SongplayStaging holds a song-play event before song and artist ids are resolved.
type SongplayStaging struct {
	SongplayID string    `gorm:"column:songplay_id;primaryKey"`
	StartTime  time.Time `gorm:"column:start_time"`
	UserID     int64     `gorm:"column:user_id"`
	Level      *string   `gorm:"column:level"`
	Song       *string   `gorm:"column:song"`
	Artist     *string   `gorm:"column:artist"`
	SessionID  string    `gorm:"column:session_id"`
	Location   *string   `gorm:"column:location"`
	UserAgent  *string   `gorm:"column:user_agent"`
	Length     *float64  `gorm:"column:length"`
}

func (SongplayStaging) TableName() string { return "songplay_staging" }
