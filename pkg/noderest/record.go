package noderest

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Keys that every OutputRecord starts with.
const (
	KeyNID  = "nid"
	KeyPath = "path"

	MetaPrefix = "meta_"
)

// OutputRecord is an insertion-ordered map of output keys to values. It
// marshals to a JSON object with keys in insertion order.
type OutputRecord struct {
	values *orderedmap.OrderedMap[string, any]
}

// NewOutputRecord creates an empty record.
func NewOutputRecord() *OutputRecord {
	return &OutputRecord{values: orderedmap.New[string, any]()}
}

// Set stores a value. New keys are appended; existing keys keep their position.
func (r *OutputRecord) Set(key string, value any) {
	r.values.Set(key, value)
}

// Get returns the value stored under key.
func (r *OutputRecord) Get(key string) (any, bool) {
	return r.values.Get(key)
}

// Keys returns the keys in insertion order.
func (r *OutputRecord) Keys() []string {
	keys := make([]string, 0, r.values.Len())
	for pair := r.values.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of keys.
func (r *OutputRecord) Len() int {
	return r.values.Len()
}

// MarshalJSON implements json.Marshaler.
func (r *OutputRecord) MarshalJSON() ([]byte, error) {
	return r.values.MarshalJSON()
}
