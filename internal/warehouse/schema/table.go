package schema

import (
	"gorm.io/gorm/clause"
)

// Type is a logical column type rendered per dialect.
type Type int

const (
	Text Type = iota
	BigInt
	Int
	Double
	Timestamp
)

// ConflictPolicy decides what a bulk load does with an existing primary key.
type ConflictPolicy int

const (
	// ConflictUpdate overwrites every non-key column with the incoming values.
	ConflictUpdate ConflictPolicy = iota
	// ConflictIgnore keeps the row already stored.
	ConflictIgnore
)

type Column struct {
	Name    string
	Type    Type
	NotNull bool
}

// Table describes a warehouse table. Column order is the load order.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey string
	Conflict   ConflictPolicy
	Temporary  bool
}

func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

func (t Table) NonKeyColumns() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name != t.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// OnConflict returns the gorm clause implementing the table's conflict policy.
func (t Table) OnConflict() clause.OnConflict {
	oc := clause.OnConflict{Columns: []clause.Column{{Name: t.PrimaryKey}}}
	if t.Conflict == ConflictIgnore {
		oc.DoNothing = true
		return oc
	}
	oc.DoUpdates = clause.AssignmentColumns(t.NonKeyColumns())
	return oc
}

var (
	Songs = Table{
		Name: "songs",
		Columns: []Column{
			{Name: "song_id", Type: Text, NotNull: true},
			{Name: "title", Type: Text, NotNull: true},
			{Name: "artist_id", Type: Text, NotNull: true},
			{Name: "year", Type: Int},
			{Name: "duration", Type: Double, NotNull: true},
		},
		PrimaryKey: "song_id",
		Conflict:   ConflictUpdate,
	}

	Artists = Table{
		Name: "artists",
		Columns: []Column{
			{Name: "artist_id", Type: Text, NotNull: true},
			{Name: "name", Type: Text, NotNull: true},
			{Name: "location", Type: Text},
			{Name: "latitude", Type: Double},
			{Name: "longitude", Type: Double},
		},
		PrimaryKey: "artist_id",
		Conflict:   ConflictUpdate,
	}

	Users = Table{
		Name: "users",
		Columns: []Column{
			{Name: "user_id", Type: BigInt, NotNull: true},
			{Name: "first_name", Type: Text, NotNull: true},
			{Name: "last_name", Type: Text, NotNull: true},
			{Name: "gender", Type: Text},
			{Name: "level", Type: Text},
		},
		PrimaryKey: "user_id",
		Conflict:   ConflictUpdate,
	}

	Time = Table{
		Name: "time",
		Columns: []Column{
			{Name: "start_time", Type: Timestamp, NotNull: true},
			{Name: "hour", Type: Int},
			{Name: "day", Type: Int},
			{Name: "week", Type: Int},
			{Name: "month", Type: Int},
			{Name: "year", Type: Int},
			{Name: "weekday", Type: Int},
		},
		PrimaryKey: "start_time",
		Conflict:   ConflictIgnore,
	}

	Songplays = Table{
		Name: "songplays",
		Columns: []Column{
			{Name: "songplay_id", Type: Text, NotNull: true},
			{Name: "start_time", Type: Timestamp, NotNull: true},
			{Name: "user_id", Type: BigInt, NotNull: true},
			{Name: "level", Type: Text},
			{Name: "song_id", Type: Text},
			{Name: "artist_id", Type: Text},
			{Name: "session_id", Type: Text},
			{Name: "location", Type: Text},
			{Name: "user_agent", Type: Text},
		},
		PrimaryKey: "songplay_id",
		Conflict:   ConflictUpdate,
	}

	SongplayStaging = Table{
		Name: "songplay_staging",
		Columns: []Column{
			{Name: "songplay_id", Type: Text, NotNull: true},
			{Name: "start_time", Type: Timestamp, NotNull: true},
			{Name: "user_id", Type: BigInt, NotNull: true},
			{Name: "level", Type: Text},
			{Name: "song", Type: Text},
			{Name: "artist", Type: Text},
			{Name: "session_id", Type: Text},
			{Name: "location", Type: Text},
			{Name: "user_agent", Type: Text},
			{Name: "length", Type: Double},
		},
		PrimaryKey: "songplay_id",
		Conflict:   ConflictUpdate,
		Temporary:  true,
	}
)

// StarTables lists the persistent tables in creation order.
func StarTables() []Table {
	return []Table{Songplays, Users, Songs, Artists, Time}
}
