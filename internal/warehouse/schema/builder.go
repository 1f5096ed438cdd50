package schema

import (
	"errors"
	"fmt"
	"strings"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
)

// Songplay match predicates.
const (
	MatchLengthWithinDuration = "length_within_duration"
	MatchExact                = "exact"
	MatchTitleArtist          = "title_artist"
)

var (
	ErrUnsupportedDialect   = errors.New("unsupported_dialect")
	ErrUnsupportedPredicate = errors.New("unsupported_match_predicate")
)

// Builder renders DDL and set-based statements for one dialect.
type Builder struct {
	Dialect Dialect
}

// NewBuilder accepts a gorm dialector name.
func NewBuilder(name string) (Builder, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case Postgres, SQLite, MySQL:
		return Builder{Dialect: d}, nil
	default:
		return Builder{}, fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
	}
}

func (b Builder) Quote(ident string) string {
	if b.Dialect == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (b Builder) columnType(c Column, primary bool) string {
	switch b.Dialect {
	case MySQL:
		switch c.Type {
		case Text:
			if primary {
				return "VARCHAR(255)"
			}
			return "TEXT"
		case BigInt:
			return "BIGINT"
		case Int:
			return "INT"
		case Double:
			return "DOUBLE"
		case Timestamp:
			return "DATETIME(3)"
		}
	case SQLite:
		switch c.Type {
		case Text:
			return "TEXT"
		case BigInt, Int:
			return "INTEGER"
		case Double:
			return "REAL"
		case Timestamp:
			return "DATETIME"
		}
	default:
		switch c.Type {
		case Text:
			return "varchar"
		case BigInt:
			return "bigint"
		case Int:
			return "int"
		case Double:
			return "double precision"
		case Timestamp:
			return "timestamp"
		}
	}
	return "TEXT"
}

// CreateTable renders an idempotent CREATE TABLE.
func (b Builder) CreateTable(t Table) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if t.Temporary {
		sb.WriteString("TEMPORARY ")
	}
	sb.WriteString("TABLE IF NOT EXISTS ")
	sb.WriteString(b.Quote(t.Name))
	sb.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		primary := c.Name == t.PrimaryKey
		sb.WriteString(b.Quote(c.Name))
		sb.WriteString(" ")
		sb.WriteString(b.columnType(c, primary))
		if primary {
			sb.WriteString(" PRIMARY KEY")
		} else if c.NotNull {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (b Builder) DropTable(t Table) string {
	if t.Temporary && b.Dialect == MySQL {
		return "DROP TEMPORARY TABLE IF EXISTS " + b.Quote(t.Name)
	}
	return "DROP TABLE IF EXISTS " + b.Quote(t.Name)
}

// ResolveSongplays renders the statement that moves staged songplays into the
// fact table, resolving song and artist ids through a left join. Each staged
// row yields exactly one songplay; among several candidate songs the shortest
// duration wins, then the lowest song id.
func (b Builder) ResolveSongplays(predicate string) (string, error) {
	lengthCond, err := b.lengthCondition(predicate)
	if err != nil {
		return "", err
	}

	q := b.Quote
	staging := SongplayStaging
	target := Songplays

	selected := make([]string, 0, len(target.Columns))
	inner := make([]string, 0, len(target.Columns))
	for _, c := range target.ColumnNames() {
		selected = append(selected, "r."+q(c))
		switch c {
		case "song_id", "artist_id":
			inner = append(inner, "m."+q(c))
		default:
			inner = append(inner, "st."+q(c))
		}
	}
	inner = append(inner, fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY st.%s ORDER BY m.%s, m.%s) AS %s",
		q(staging.PrimaryKey), q("duration"), q("song_id"), q("match_rank")))

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) ", q(target.Name), b.columnList(target.ColumnNames()))
	fmt.Fprintf(&sb, "SELECT %s FROM (", strings.Join(selected, ", "))
	fmt.Fprintf(&sb, "SELECT %s FROM %s st ", strings.Join(inner, ", "), q(staging.Name))
	fmt.Fprintf(&sb, "LEFT JOIN (SELECT s.%s, s.%s, s.%s, s.%s, a.%s FROM %s s JOIN %s a ON a.%s = s.%s) m ",
		q("song_id"), q("artist_id"), q("title"), q("duration"), q("name"),
		q(Songs.Name), q(Artists.Name), q("artist_id"), q("artist_id"))
	fmt.Fprintf(&sb, "ON m.%s = st.%s AND m.%s = st.%s", q("title"), q("song"), q("name"), q("artist"))
	if lengthCond != "" {
		sb.WriteString(" AND ")
		sb.WriteString(lengthCond)
	}
	fmt.Fprintf(&sb, ") r WHERE r.%s = 1 ", q("match_rank"))
	sb.WriteString(b.upsertSuffix(target))
	return sb.String(), nil
}

func (b Builder) lengthCondition(predicate string) (string, error) {
	q := b.Quote
	switch predicate {
	case MatchLengthWithinDuration, "":
		return fmt.Sprintf("st.%s <= m.%s", q("length"), q("duration")), nil
	case MatchExact:
		return fmt.Sprintf("st.%s = m.%s", q("length"), q("duration")), nil
	case MatchTitleArtist:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPredicate, predicate)
	}
}

func (b Builder) columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.Quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (b Builder) upsertSuffix(t Table) string {
	cols := t.NonKeyColumns()
	sets := make([]string, len(cols))
	if b.Dialect == MySQL {
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", b.Quote(c), b.Quote(c))
		}
		if t.Conflict == ConflictIgnore {
			return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", b.Quote(t.PrimaryKey), b.Quote(t.PrimaryKey))
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}

	if t.Conflict == ConflictIgnore {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", b.Quote(t.PrimaryKey))
	}
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", b.Quote(c), b.Quote(c))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", b.Quote(t.PrimaryKey), strings.Join(sets, ", "))
}
