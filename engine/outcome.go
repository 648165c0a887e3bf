package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Outcome is the result of validating (and persisting) one entity.
type Outcome struct {
	Success bool

	// Err is nil on success. Otherwise it is a *ValidationError or an error
	// wrapping ErrStore.
	Err error
}

// Pass is the successful Outcome.
func Pass() Outcome {
	return Outcome{Success: true}
}

// Fail returns a validation failure with a formatted message.
func Fail(format string, args ...any) Outcome {
	return Outcome{Err: &ValidationError{Msg: fmt.Sprintf(format, args...)}}
}

func failStore(err error) Outcome {
	return Outcome{Err: err}
}

// Message returns the error text, or "" on success.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}

	return o.Err.Error()
}

// IsStoreError reports whether the outcome failed in the store rather than
// in validation.
func (o Outcome) IsStoreError() bool {
	return errors.Is(o.Err, ErrStore)
}

type jsonOutcome struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
	Store   bool    `json:"storeError,omitempty"`
}

// MarshalJSON renders {"success": bool, "error": string|null}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	jo := jsonOutcome{Success: o.Success, Store: o.IsStoreError()}
	if o.Err != nil {
		msg := o.Err.Error()
		jo.Error = &msg
	}

	return json.Marshal(jo)
}
