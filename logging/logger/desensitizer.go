package logger

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/ncobase/lamet/logging/logger/config"
	"github.com/sirupsen/logrus"
)

const maxDesensitizeDepth = 8

// Desensitizer masks sensitive values in log fields
type Desensitizer struct {
	config   *config.Desensitization
	mask     string
	patterns []*regexp.Regexp
}

// NewDesensitizer creates a new desensitizer instance
func NewDesensitizer(cfg *config.Desensitization) *Desensitizer {
	d := &Desensitizer{
		config: cfg,
		mask:   strings.Repeat(cfg.MaskChar, cfg.MaskLength),
	}
	for _, pattern := range cfg.CustomPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			d.patterns = append(d.patterns, re)
		}
	}
	return d
}

// DesensitizeFields returns a copy of fields with sensitive data masked
func (d *Desensitizer) DesensitizeFields(fields logrus.Fields) logrus.Fields {
	if !d.config.Enabled {
		return fields
	}
	out := make(logrus.Fields, len(fields))
	for k, v := range fields {
		out[k] = d.value(k, v, 0)
	}
	return out
}

func (d *Desensitizer) value(key string, v any, depth int) any {
	if v == nil || depth > maxDesensitizeDepth {
		return v
	}
	if d.isSensitiveField(key) {
		return d.maskValue(v)
	}
	switch t := v.(type) {
	case string:
		return d.desensitizeString(t)
	case error:
		return d.desensitizeString(t.Error())
	case fmt.Stringer:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			m[k] = d.value(k, iter.Value().Interface(), depth+1)
		}
		return m
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = d.value("", rv.Index(i).Interface(), depth+1)
		}
		return s
	case reflect.Ptr:
		if rv.IsNil() {
			return v
		}
		return d.value(key, rv.Elem().Interface(), depth+1)
	default:
		return v
	}
}

// isSensitiveField checks if field name contains sensitive keywords
func (d *Desensitizer) isSensitiveField(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, f := range d.config.SensitiveFields {
		f = strings.ToLower(f)
		if d.config.ExactFieldMatch {
			if lower == f {
				return true
			}
		} else if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func (d *Desensitizer) desensitizeString(s string) string {
	for _, re := range d.patterns {
		s = re.ReplaceAllString(s, d.mask)
	}
	return s
}

func (d *Desensitizer) maskValue(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return s
	}
	return d.mask
}

// DesensitizeHook applies a Desensitizer to every entry before it is written
type DesensitizeHook struct {
	d *Desensitizer
}

// NewDesensitizeHook creates a hook backed by the given configuration
func NewDesensitizeHook(cfg *config.Desensitization) *DesensitizeHook {
	return &DesensitizeHook{d: NewDesensitizer(cfg)}
}

// Levels returns all log levels
func (h *DesensitizeHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire masks entry fields in place
func (h *DesensitizeHook) Fire(entry *logrus.Entry) error {
	entry.Data = h.d.DesensitizeFields(entry.Data)
	return nil
}
