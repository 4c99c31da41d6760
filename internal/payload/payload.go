// Package payload validates raw checkout ingestion payloads against the
// CUE contract in schema.cue before they are decoded and normalized.
//
// Schema violations surface as *order.ValidationError so callers treat
// them exactly like any other malformed-payload failure: fatal, reported
// immediately, never retried.
package payload

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/ordercap/internal/order"
)

//go:embed schema.cue
var schemaCUE string

var (
	compileOnce sync.Once
	cuectx      *cue.Context
	inputSchema cue.Value
	compileErr  error
)

// schema compiles schema.cue once per process and returns the #Input
// definition. The embedded schema is part of the build, so a compile
// failure is a programming error, reported rather than panicking.
func schema() (cue.Value, error) {
	compileOnce.Do(func() {
		cuectx = cuecontext.New()
		v := cuectx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			compileErr = fmt.Errorf("compile payload schema: %w", err)
			return
		}
		inputSchema = v.LookupPath(cue.ParsePath("#Input"))
		if err := inputSchema.Err(); err != nil {
			compileErr = fmt.Errorf("lookup #Input: %w", err)
		}
	})
	return inputSchema, compileErr
}

// Validate checks a raw JSON ingestion payload against the schema.
//
// Returns nil when the payload satisfies the contract. Syntax errors and
// schema violations return *order.ValidationError with the CUE diagnostic
// as the message.
func Validate(data []byte) error {
	sch, err := schema()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("payload.json", data)
	if err != nil {
		return &order.ValidationError{Message: fmt.Sprintf("malformed JSON: %v", err)}
	}

	val := cuectx.BuildExpr(expr)
	if err := val.Err(); err != nil {
		return &order.ValidationError{Message: cueerrors.Details(err, nil)}
	}

	unified := sch.Unify(val)
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return &order.ValidationError{Message: cueerrors.Details(err, nil)}
	}
	return nil
}
