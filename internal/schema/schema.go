// Package schema holds the JSON Schemas for records that nodes exchange
// through the shared store. Records are validated on read; anything that
// fails is treated as absent by the caller.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	Presence  = "presence.schema.json"
	Challenge = "challenge.schema.json"
	StoreWS   = "store_ws_v1.schema.json"
)

//go:embed *.schema.json
var files embed.FS

var compiled = mustCompileAll(Presence, Challenge, StoreWS)

func mustCompileAll(names ...string) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("schema %s: %v", name, err))
		}
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		out[name] = compiler.MustCompile(name)
	}
	return out
}

// Validate checks raw JSON against the named schema.
func Validate(name string, raw []byte) error {
	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
