package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Match reports whether a JSON document satisfies every filter. Field names
// may use dots to reach into nested objects. Missing fields never match.
func Match(data json.RawMessage, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("match: decode document: %w", err)
	}
	for _, f := range filters {
		ok, err := matchOne(doc, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOne(doc map[string]any, f Filter) (bool, error) {
	got, ok := lookup(doc, f.Field)
	if !ok {
		return false, nil
	}
	want, err := normalize(f.Value)
	if err != nil {
		return false, err
	}
	switch f.Op {
	case OpEqual:
		return reflect.DeepEqual(got, want), nil
	case OpIn:
		candidates, ok := want.([]any)
		if !ok {
			return false, fmt.Errorf("match: %s filter on %s needs a slice value", f.Op, f.Field)
		}
		for _, c := range candidates {
			if reflect.DeepEqual(got, c) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("match: unsupported operator %q", f.Op)
	}
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize round-trips v through JSON so Go values compare equal to decoded documents.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("match: encode filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("match: decode filter value: %w", err)
	}
	return out, nil
}

// Select applies q to an unordered set of documents keyed by id.
func Select(docs map[string]json.RawMessage, q Query) ([]Document, error) {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		ok, err := Match(docs[id], q.Filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Document{ID: id, Data: cloneRaw(docs[id])})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
