package types

// Tags is the tag set attached to a metric
type Tags map[string]any

// Clone returns a shallow copy of the tags
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns a new tag set holding t overlaid with override.
// Keys in override win on collision; neither input is modified.
func (t Tags) Merge(override Tags) Tags {
	out := make(Tags, len(t)+len(override))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// With returns a copy of the tags with key set to value
func (t Tags) With(key string, value any) Tags {
	out := t.Clone()
	out[key] = value
	return out
}
