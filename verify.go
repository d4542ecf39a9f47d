package relay

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used by the commit gate.
var validate = validator.New()

// Validator lets a state payload supply hand-written verification that runs
// before commit, in addition to any struct tags.
type Validator interface {
	Validate() error
}

// verifyState is the generic gate applied to every working copy during
// Commit: struct payloads are checked against their validate tags, and
// payloads implementing Validator are asked directly. Driver-specific
// semantics (mode and format negotiation) stay inside the hooks; this gate
// only rejects copies that violate their own declared constraints.
func verifyState(state any) error {
	if state == nil {
		return nil
	}
	if v, ok := state.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	rv := reflect.ValueOf(state)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}
