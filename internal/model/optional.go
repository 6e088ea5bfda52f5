package model

import "encoding/json"

// Optional tracks whether a JSON field was present in a request body.
//
// Partial updates need three states: absent (leave the column alone),
// explicit null (clear it) and a value. A plain pointer only gives two.
// For nullable columns use Optional[*T]; null then decodes to Set=true with
// a nil Value.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}
