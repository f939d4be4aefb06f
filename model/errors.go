package model

import (
	"errors"
	"strings"
)

// Error codes reported by the model.
const (
	CodeBadAct        = "BAD_ACT"         // action is not a model action
	CodeBadField      = "BAD_FIELD"       // unknown or forbidden field
	CodeBadFieldValue = "BAD_FIELD_VALUE" // value is malformed or out of range
	CodeBadID         = "BAD_ID"          // id does not reference an existing object
	CodeDB            = "DB"              // storage failure
	CodeFormError     = "FORM_ERROR"      // request as a whole is malformed
	CodeMissingField  = "MISSING_FIELD"   // required field absent
)

// Error is one structured model failure. Name is the internal name of the
// offending field, empty when the error is not tied to a field.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// Errors is the only error type model actions return for domain failures,
// so several problems can be reported together.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Message
	}
	return strings.Join(msgs, "; ")
}

// AsErrors extracts model errors from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		return errs, true
	}
	return nil, false
}

func dbError(err error) error {
	return Errors{{Code: CodeDB, Message: err.Error()}}
}
