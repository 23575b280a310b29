// Package fingerprint derives the aggregation key of an observation.
//
// A fingerprint is kind:name:unit:hash where hash is the xxhash64 of the
// canonical JSON form of the tag set. The same kind, name, unit and tag set
// always produce the same fingerprint, in any process and regardless of the
// order tags were inserted in.
package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ncobase/lamet/types"
)

// Fingerprint returns the aggregation key for the given identity.
func Fingerprint(kind types.Kind, name, unit string, tags types.Tags) string {
	return kind.String() + ":" + name + ":" + unit + ":" + Hash(tags)
}

// Hash returns the 16 hex digit xxhash64 of the canonical tag encoding.
func Hash(tags types.Tags) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(Canonical(tags)))
}

// Canonical encodes tags as JSON with keys sorted at every level and
// numbers rendered the same whatever their Go type. Nil tags encode as {}.
func Canonical(tags types.Tags) []byte {
	var buf bytes.Buffer
	if tags == nil {
		buf.WriteString("{}")
		return buf.Bytes()
	}
	encode(&buf, map[string]any(tags))
	return buf.Bytes()
}

func encode(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case string:
		writeString(buf, t)
	case int:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(t, 10))
	case float32:
		writeFloat(buf, float64(t))
	case float64:
		writeFloat(buf, t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			writeFloat(buf, f)
		} else {
			writeString(buf, t.String())
		}
	case types.Tags:
		encodeMap(buf, reflect.ValueOf(map[string]any(t)))
	case error:
		writeString(buf, t.Error())
	case fmt.Stringer:
		writeString(buf, t.String())
	default:
		encodeReflect(buf, v)
	}
}

// writeFloat renders integral values without a fraction so 5, int64(5) and
// 5.0 encode identically.
func writeFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		writeString(buf, strconv.FormatFloat(f, 'g', -1, 64))
	case f == math.Trunc(f) && math.Abs(f) < 1<<63:
		buf.WriteString(strconv.FormatInt(int64(f), 10))
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func encodeReflect(buf *bytes.Buffer, v any) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			encodeMap(buf, rv)
			return
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			encode(buf, rv.Index(i).Interface())
		}
		buf.WriteByte(']')
		return
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("null")
			return
		}
		encode(buf, rv.Elem().Interface())
		return
	case reflect.String:
		writeString(buf, rv.String())
		return
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(rv.Bool()))
		return
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(rv.Int(), 10))
		return
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return
	case reflect.Float32, reflect.Float64:
		writeFloat(buf, rv.Float())
		return
	}

	// Structs and other values go through encoding/json and are then
	// re-encoded canonically.
	b, err := json.Marshal(v)
	if err != nil {
		writeString(buf, fmt.Sprintf("%v", v))
		return
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		buf.Write(b)
		return
	}
	encode(buf, generic)
}

func encodeMap(buf *bytes.Buffer, rv reflect.Value) {
	if rv.IsNil() {
		buf.WriteString("{}")
		return
	}
	keys := make([]string, 0, rv.Len())
	values := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		values[k] = iter.Value().Interface()
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		encode(buf, values[k])
	}
	buf.WriteByte('}')
}
