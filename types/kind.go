package types

import (
	"fmt"
	"strings"
)

// Kind is the metric kind
type Kind string

const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindTimer     Kind = "timer"
	KindException Kind = "exception"
)

// Kinds lists every supported kind
var Kinds = []Kind{KindCounter, KindGauge, KindTimer, KindException}

// String returns the kind as string
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether the kind is one of the supported kinds
func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// OrDefault returns the kind, or counter when empty
func (k Kind) OrDefault() Kind {
	if k == "" {
		return KindCounter
	}
	return k
}

// ParseKind parses a kind name, case-insensitive
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown metric kind %q", s)
	}
	return k, nil
}
