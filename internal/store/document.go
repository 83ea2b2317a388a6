package store

import (
	"bytes"
	"encoding/json"
	"strings"
)

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, ErrInvalidPath
		}
	}
	return segs, nil
}

func decodeValue(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func lookup(doc any, segs []string) (any, bool) {
	cur := doc
	for _, s := range segs {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[s]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// assign returns doc with value placed at segs. Missing or non-object
// intermediates become empty objects.
func assign(doc any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	obj[segs[0]] = assign(obj[segs[0]], segs[1:], value)
	return obj
}

// prune deletes the leaf at segs and reports whether anything changed.
func prune(doc any, segs []string) bool {
	if len(segs) == 0 {
		return false
	}
	parent, ok := lookup(doc, segs[:len(segs)-1])
	if !ok {
		return false
	}
	obj, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	leaf := segs[len(segs)-1]
	if _, ok := obj[leaf]; !ok {
		return false
	}
	delete(obj, leaf)
	return true
}
