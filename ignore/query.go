package ignore

import (
	"regexp"
)

type sqlRule struct {
	literal string
	re      *regexp.Regexp
}

func (r sqlRule) match(sql string) bool {
	if r.re != nil {
		return r.re.MatchString(sql)
	}
	return sql == r.literal
}

// compileSQL accepts plain Go regular expressions and /body/flags patterns.
func compileSQL(pattern string) (sqlRule, error) {
	var (
		re  *regexp.Regexp
		err error
	)
	if body, flags, ok := delimited(pattern); ok {
		re, err = compileDelimited(body, flags)
	} else {
		re, err = regexp.Compile(pattern)
	}
	if err != nil {
		return sqlRule{literal: pattern}, err
	}
	return sqlRule{re: re}, nil
}

const tableClauses = `(?:from|join|into|update|delete\s+from|insert\s+into|truncate(?:\s+table)?|drop\s+table(?:\s+if\s+exists)?|create\s+table(?:\s+if\s+not\s+exists)?|alter\s+table)`

// tablePattern matches table as a whole word right after a clause keyword,
// optionally quoted with backticks or double quotes.
func tablePattern(table string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + tableClauses + `\s+[` + "`" + `"]?` +
		regexp.QuoteMeta(table) + `(?:[` + "`" + `"]|\b|$)`)
}

// ContainsTable reports whether sql reads or writes table.
func ContainsTable(sql, table string) bool {
	return tablePattern(table).MatchString(sql)
}

// ShouldIgnoreQuery reports whether sql touches an ignored table or matches
// an ignored SQL pattern.
func (f *Filter) ShouldIgnoreQuery(sql string) bool {
	for _, re := range f.tables {
		if re.MatchString(sql) {
			return true
		}
	}
	for _, r := range f.sqlRules {
		if r.match(sql) {
			return true
		}
	}
	return false
}
