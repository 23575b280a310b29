// Package ignore decides whether an observation is dropped before it is
// aggregated: by request path, by error class or by SQL text.
//
// Rules are compiled once. A malformed regular expression never fails the
// caller; it is logged when the filter is built and then compared as a
// literal string.
package ignore

import (
	"context"
	"regexp"

	"github.com/ncobase/lamet/config"
	"github.com/ncobase/lamet/logging/logger"
)

// Filter holds compiled ignore rules. It is safe for concurrent use.
type Filter struct {
	paths      []pathRule
	exceptions []classRule
	tables     []*regexp.Regexp
	sqlRules   []sqlRule
}

// New compiles the configured rules. table is the metrics table, which is
// always ignored so queries issued by the storage layer are never measured.
func New(cfg *config.Ignore, table string) *Filter {
	if cfg == nil {
		cfg = &config.Ignore{}
	}
	ctx := context.Background()
	f := &Filter{}

	for _, p := range cfg.Paths {
		r, err := compilePath(p)
		if err != nil {
			logger.Warnf(ctx, "ignore: invalid path pattern %q, comparing literally: %v", p, err)
		}
		f.paths = append(f.paths, r)
	}

	for _, p := range append(append([]string{}, cfg.Exceptions...), recordErrorClass) {
		f.exceptions = append(f.exceptions, compileClass(p))
	}

	var tables, sqlPatterns []string
	if cfg.DBQuery != nil {
		tables = cfg.DBQuery.Tables
		sqlPatterns = cfg.DBQuery.SQLPatterns
	}
	if table != "" {
		tables = append(append([]string{}, tables...), table)
	}
	for _, t := range tables {
		if t == "" {
			continue
		}
		f.tables = append(f.tables, tablePattern(t))
	}
	for _, p := range sqlPatterns {
		r, err := compileSQL(p)
		if err != nil {
			logger.Warnf(ctx, "ignore: invalid sql pattern %q, comparing literally: %v", p, err)
		}
		f.sqlRules = append(f.sqlRules, r)
	}

	return f
}
