package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dialect captures what differs between the SQL engines.
type dialect struct {
	name string
	// maxParams bounds the placeholders of one statement.
	maxParams   int
	placeholder func(n int) string
	schema      func(table string) []string
	timeArg     func(t time.Time) any
}

var dialects = map[string]dialect{
	"postgres": {
		name:        "postgres",
		maxParams:   65535,
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		timeArg:     func(t time.Time) any { return t.UTC() },
		schema: func(t string) []string {
			return []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	value DECIMAL(15,6) NOT NULL,
	tags JSONB,
	type VARCHAR(50) NOT NULL DEFAULT 'counter',
	unit VARCHAR(20) NULL,
	count BIGINT NOT NULL DEFAULT 1,
	recorded_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NULL,
	updated_at TIMESTAMPTZ NULL
)`, t),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_name_time_idx ON %[1]s (name, recorded_at)`, t),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_type_time_idx ON %[1]s (type, recorded_at)`, t),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_tags_idx ON %[1]s USING GIN (tags)`, t),
			}
		},
	},
	"mysql": {
		name:        "mysql",
		maxParams:   65535,
		placeholder: func(int) string { return "?" },
		timeArg:     func(t time.Time) any { return t.UTC() },
		schema: func(t string) []string {
			return []string{
				fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%[1]s` (\n"+
					"\tid BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,\n"+
					"\tname VARCHAR(255) NOT NULL,\n"+
					"\tvalue DECIMAL(15,6) NOT NULL,\n"+
					"\ttags JSON NULL,\n"+
					"\ttype VARCHAR(50) NOT NULL DEFAULT 'counter',\n"+
					"\tunit VARCHAR(20) NULL,\n"+
					"\tcount BIGINT NOT NULL DEFAULT 1,\n"+
					"\trecorded_at DATETIME(6) NOT NULL,\n"+
					"\tcreated_at DATETIME(6) NULL,\n"+
					"\tupdated_at DATETIME(6) NULL,\n"+
					"\tINDEX %[1]s_name_time_idx (name, recorded_at),\n"+
					"\tINDEX %[1]s_type_time_idx (type, recorded_at)\n"+
					") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", t),
			}
		},
	},
	"sqlite": {
		name:        "sqlite",
		maxParams:   32766,
		placeholder: func(int) string { return "?" },
		// fixed width text keeps lexical order equal to time order
		timeArg: func(t time.Time) any { return t.UTC().Format("2006-01-02 15:04:05.000000") },
		schema: func(t string) []string {
			return []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name VARCHAR(255) NOT NULL,
	value DECIMAL(15,6) NOT NULL,
	tags TEXT,
	type VARCHAR(50) NOT NULL DEFAULT 'counter',
	unit VARCHAR(20) NULL,
	count BIGINT NOT NULL DEFAULT 1,
	recorded_at DATETIME NOT NULL,
	created_at DATETIME NULL,
	updated_at DATETIME NULL
)`, t),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_name_time_idx ON %[1]s (name, recorded_at)`, t),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_type_time_idx ON %[1]s (type, recorded_at)`, t),
			}
		},
	},
}

// placeholders renders n placeholders starting at start, comma separated.
func (d dialect) placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(start + i)
	}
	return strings.Join(ph, ", ")
}
