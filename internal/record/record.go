// Package record holds the row type that flows through the pipeline and the
// fixed dataset the extract stage reads from.
package record

// StatusActive is stamped on every record that survives the transform stage.
const StatusActive = "Active"

// MinAge is the exclusive lower bound applied by the transform stage.
const MinAge = 25

// Record is one demo row. Status is set only by the transform stage.
type Record struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Age    int    `json:"age" yaml:"age"`
	City   string `json:"city" yaml:"city"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

var rawSource = [...]Record{
	{ID: 1, Name: "Alice", Age: 24, City: "New York"},
	{ID: 2, Name: "Bob", Age: 30, City: "London"},
	{ID: 3, Name: "Charlie", Age: 28, City: "Paris"},
	{ID: 4, Name: "David", Age: 22, City: "New York"},
	{ID: 5, Name: "Eve", Age: 35, City: "Berlin"},
}

// RawSource returns a fresh copy of the demo dataset.
func RawSource() []Record {
	out := make([]Record, len(rawSource))
	copy(out, rawSource[:])
	return out
}

// Clone copies rs. The result is never nil so it always encodes as a JSON array.
func Clone(rs []Record) []Record {
	out := make([]Record, len(rs))
	copy(out, rs)
	return out
}
