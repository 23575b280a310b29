// Package types defines the values that flow through the metrics pipeline:
// observations emitted by application code, the aggregated entries held in
// the cache between flushes, and the records persisted to durable storage.
//
// # Kinds
//
//	types.KindCounter   // monotonically summed occurrences
//	types.KindGauge     // summed samples of a level
//	types.KindTimer     // summed durations, usually in ms
//	types.KindException // one per recorded error
//
// # Tags
//
// Tags are an unordered mapping of string keys to scalar values. Two tag maps
// with the same content always describe the same series, whatever order they
// were built in:
//
//	base := types.Tags{"environment": "production"}
//	tags := base.Merge(types.Tags{"route": "/orders"})
package types
