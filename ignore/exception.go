package ignore

import (
	"errors"
	"reflect"
	"strings"

	"github.com/ncobase/lamet/types"
)

// Classifier lets an error report its own class name, for errors that wrap
// failures from other systems.
type Classifier interface {
	ErrorClass() string
}

// recordErrorClass is always ignored so failures of the record path are
// never recorded themselves.
var recordErrorClass = ClassName(&types.RecordError{})

type classRule struct {
	literal string
	prefix  bool
}

func (r classRule) match(class string) bool {
	if r.prefix {
		return strings.HasPrefix(class, r.literal)
	}
	return class == r.literal
}

// compileClass handles "exact.Type" and wildcard rules ending in "*".
// The separator before the star is kept, so `App\*` needs `App\` as prefix.
func compileClass(pattern string) classRule {
	if strings.HasSuffix(pattern, "*") {
		return classRule{literal: strings.TrimSuffix(pattern, "*"), prefix: true}
	}
	return classRule{literal: pattern}
}

// MatchClass reports whether class matches a single exception pattern.
func MatchClass(class, pattern string) bool {
	return compileClass(pattern).match(class)
}

// ClassName returns the fully qualified type name of err, such as
// "github.com/acme/app/billing.InvalidCharge". Pointers are dereferenced
// and a Classifier wins over the Go type.
func ClassName(err error) string {
	if err == nil {
		return ""
	}
	if c, ok := err.(Classifier); ok {
		return c.ErrorClass()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// ShouldIgnoreClass reports whether any exception rule matches class.
func (f *Filter) ShouldIgnoreClass(class string) bool {
	for _, r := range f.exceptions {
		if r.match(class) {
			return true
		}
	}
	return false
}

// ShouldIgnoreException reports whether err, or any error it wraps, has an
// ignored class.
func (f *Filter) ShouldIgnoreException(err error) bool {
	ignored := false
	walk(err, func(e error) bool {
		ignored = f.ShouldIgnoreClass(ClassName(e))
		return !ignored
	})
	return ignored
}

// walk visits err and its wrapped errors depth first until fn returns false.
func walk(err error, fn func(error) bool) bool {
	if err == nil {
		return true
	}
	if !fn(err) {
		return false
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if !walk(e, fn) {
				return false
			}
		}
		return true
	default:
		return walk(errors.Unwrap(err), fn)
	}
}
