// Package schema validates persisted documents against their JSON schemas.
//
// Records are checked on the way into and out of the store so that a row
// with a missing or unexpected shape is rejected instead of being read back
// with zero values filled in.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind names a persisted document type.
type Kind string

// Document kinds stored by the service.
const (
	KindAssignment Kind = "assignment"
	KindSubmission Kind = "submission"
	KindGrade      Kind = "grade"
)

const baseURL = "https://schemas.acadex.dev/documents/"

// ErrInvalidDocument is returned when a record does not match its schema.
var ErrInvalidDocument = errors.New("invalid document")

//go:embed documents/*.json
var documents embed.FS

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func load() (map[Kind]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		kinds := []Kind{KindAssignment, KindSubmission, KindGrade}
		for _, kind := range kinds {
			raw, err := documents.ReadFile("documents/" + string(kind) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("read %s schema: %w", kind, err)
				return
			}
			if err := compiler.AddResource(baseURL+string(kind)+".json", bytes.NewReader(raw)); err != nil {
				compileErr = fmt.Errorf("add %s schema: %w", kind, err)
				return
			}
		}

		result := make(map[Kind]*jsonschema.Schema, len(kinds))
		for _, kind := range kinds {
			sch, err := compiler.Compile(baseURL + string(kind) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
				return
			}
			result[kind] = sch
		}
		compiled = result
	})

	return compiled, compileErr
}

// Validate marshals the record to JSON and checks it against the schema for kind.
func Validate(kind Kind, record interface{}) error {
	schemas, err := load()
	if err != nil {
		return err
	}

	sch, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDocument, kind)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, kind, err)
	}

	return validateJSON(sch, raw, kind)
}

func validateJSON(sch *jsonschema.Schema, raw []byte, kind Kind) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, kind, err)
	}

	if err := sch.Validate(document); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, kind, err)
	}

	return nil
}
