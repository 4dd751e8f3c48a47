package repository

import (
	"strconv"
	"strings"
	"time"

	"salesapi/models"
)

// dialect holds what differs between the Postgres and SQLite renderings of
// the same queries. Queries are written with ? placeholders.
type dialect struct {
	name        string
	createTable string
	lockRow     string
	numbered    bool
	textDates   bool
}

var postgresDialect = dialect{
	name: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS sales (
	id     SERIAL PRIMARY KEY,
	date   DATE NOT NULL,
	amount DOUBLE PRECISION NOT NULL
)`,
	lockRow:  " FOR UPDATE",
	numbered: true,
}

// AUTOINCREMENT keeps SQLite from handing out the id of a deleted row again.
var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `CREATE TABLE IF NOT EXISTS sales (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	date   DATE NOT NULL,
	amount REAL NOT NULL
)`,
	textDates: true,
}

// rebind rewrites ? placeholders to $1, $2, ... for drivers that need them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (d dialect) dateArg(t time.Time) interface{} {
	if d.textDates {
		return t.Format(models.DateLayout)
	}
	return t
}
