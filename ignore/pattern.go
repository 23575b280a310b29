package ignore

import (
	"regexp"
	"strings"
)

const regexMeta = `\.+*?()|[]{}^$`

// delimited splits a /body/flags pattern. ok is false when raw is not
// delimited or its body holds no regex syntax, so plain paths such as
// "/api/" stay literal.
func delimited(raw string) (body, flags string, ok bool) {
	if len(raw) < 3 || raw[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(raw, '/')
	if end <= 0 {
		return "", "", false
	}
	body, flags = raw[1:end], raw[end+1:]
	if body == "" || strings.Trim(flags, "imsU") != "" {
		return "", "", false
	}
	if !strings.ContainsAny(body, regexMeta) {
		return "", "", false
	}
	return body, flags, true
}

// compileDelimited compiles a /body/flags pattern into a Go regexp,
// mapping the i, m, s and U flags onto inline flags.
func compileDelimited(body, flags string) (*regexp.Regexp, error) {
	if flags != "" {
		body = "(?" + flags + ")" + body
	}
	return regexp.Compile(body)
}
