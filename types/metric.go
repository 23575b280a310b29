package types

import "time"

// Observation is a single value emitted by application code
type Observation struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Tags  Tags    `json:"tags"`
	Kind  Kind    `json:"type"`
	Unit  string  `json:"unit,omitempty"`
}

// AggregatedMetric is the running total for one fingerprint, held in cache
// between flushes.
type AggregatedMetric struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"type"`
	Unit      string    `json:"unit,omitempty"`
	Tags      Tags      `json:"tags"`
	Value     float64   `json:"value"`
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"timestamp"`
}

// NewAggregatedMetric starts a running total from its first observation
func NewAggregatedMetric(obs Observation, now time.Time) AggregatedMetric {
	return AggregatedMetric{
		Name:      obs.Name,
		Kind:      obs.Kind,
		Unit:      obs.Unit,
		Tags:      obs.Tags,
		Value:     obs.Value,
		Count:     1,
		FirstSeen: now,
	}
}

// Merge folds an observation into the running total.
// Tags and FirstSeen are left untouched.
func (m *AggregatedMetric) Merge(obs Observation) {
	m.Value += obs.Value
	m.Count++
}

// Record is a durably stored metric row
type Record struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	Tags       Tags      `json:"tags"`
	Kind       Kind      `json:"type"`
	Unit       string    `json:"unit,omitempty"`
	Count      int64     `json:"count"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ToRecord converts an aggregated metric into a storage row stamped at now
func (m AggregatedMetric) ToRecord(now time.Time) Record {
	recordedAt := m.FirstSeen
	if recordedAt.IsZero() {
		recordedAt = now
	}
	return Record{
		Name:       m.Name,
		Value:      m.Value,
		Tags:       m.Tags,
		Kind:       m.Kind.OrDefault(),
		Unit:       m.Unit,
		Count:      m.Count,
		RecordedAt: recordedAt.UTC(),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}
