package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's write time when used as a field value.
var ServerTimestamp interface{} = serverTimestamp{}

type arrayUnion struct {
	elems []interface{}
}

// ArrayUnion appends each element to the array field unless an equal element is already present.
func ArrayUnion(elems ...interface{}) interface{} {
	return arrayUnion{elems: elems}
}

// Normalize converts v to the plain JSON value space (maps, slices, float64,
// string, bool, nil) so stored values compare the same way regardless of the
// Go types they were written with.
func Normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SameValue reports whether stored equals the normalized form of want.
func SameValue(stored, want interface{}) (bool, error) {
	a, err := Normalize(stored)
	if err != nil {
		return false, err
	}
	b, err := Normalize(want)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(a, b), nil
}

// Apply computes the document that results from writing update on top of
// existing. Transforms are resolved against existing and now.
func Apply(existing, update map[string]interface{}, merge bool, now time.Time) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(existing)+len(update))
	if merge {
		for k, v := range existing {
			out[k] = v
		}
	}

	for field, value := range update {
		switch t := value.(type) {
		case serverTimestamp:
			out[field] = now.UTC().Format(time.RFC3339Nano)
		case arrayUnion:
			var current []interface{}
			if merge {
				if arr, ok := existing[field].([]interface{}); ok {
					current = append(current, arr...)
				}
			}
			for _, elem := range t.elems {
				n, err := Normalize(elem)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", field, err)
				}
				if !containsValue(current, n) {
					current = append(current, n)
				}
			}
			if current == nil {
				current = []interface{}{}
			}
			out[field] = current
		default:
			n, err := Normalize(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			out[field] = n
		}
	}

	return out, nil
}

func containsValue(arr []interface{}, v interface{}) bool {
	for _, elem := range arr {
		if reflect.DeepEqual(elem, v) {
			return true
		}
	}
	return false
}

// Matches reports whether data satisfies every filter.
func Matches(data map[string]interface{}, filters []Filter) (bool, error) {
	for _, f := range filters {
		want, err := Normalize(f.Value)
		if err != nil {
			return false, err
		}
		got := data[f.Field]
		switch f.Op {
		case OpEqual:
			if !reflect.DeepEqual(got, want) {
				return false, nil
			}
		case OpArrayContains:
			arr, ok := got.([]interface{})
			if !ok || !containsValue(arr, want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return true, nil
}

// SortDocuments orders docs by field; ties and missing fields fall back to ID order.
func SortDocuments(docs []Document, field string, dir Direction) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Data[field], docs[j].Data[field])
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
}

func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}
