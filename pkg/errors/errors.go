// Package errors defines the typed error codes shared across mnemo.
//
// Every error crossing a package boundary carries a machine-readable Code
// built on samber/oops, plus optional structured fields. Callers classify
// errors with the Is* helpers or HasCode rather than string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	// Store layer.
	CodeEntryNotFound  Code = "store.entry.not_found"
	CodeEntryExpired   Code = "store.entry.expired"
	CodeBackendFailure Code = "store.backend.failure"
	CodeSerialization  Code = "store.record.serialization"
	CodeQueryInvalid   Code = "store.query.invalid"

	// Codec and similarity.
	CodeDimensionMismatch Code = "codec.dimension_mismatch"
	CodePayloadMissing    Code = "codec.payload.missing"
	CodePayloadInvalid    Code = "codec.payload.invalid"

	// Construction-time configuration.
	CodeConfigInvalid Code = "config.invalid_value"

	// Serving surface.
	CodeRequestInvalid  Code = "server.request.invalid"
	CodeInternalFailure Code = "server.internal.failure"
)

// Attr is a structured key/value attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldEntryID(value string) Attr {
	return Field("entry_id", value)
}

func FieldDomain(value string) Attr {
	return Field("domain", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, preserving its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsExpired(err error) bool {
	return reason(CodeOf(err)) == "expired"
}

// IsStorage reports whether the error is a durable-store or codec-payload
// failure. A quantized value missing or corrupting the payload its strategy
// requires is classified as storage-kind.
func IsStorage(err error) bool {
	return HasCode(err, CodeBackendFailure) ||
		HasCode(err, CodePayloadMissing) ||
		HasCode(err, CodePayloadInvalid)
}

func IsSerialization(err error) bool {
	return reason(CodeOf(err)) == "serialization"
}

func IsInvalidQuery(err error) bool {
	return HasCode(err, CodeQueryInvalid)
}

func IsConfig(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "config.")
}

func IsDimensionMismatch(err error) bool {
	return HasCode(err, CodeDimensionMismatch)
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value"
}

// HTTPStatus maps an error code to the response status used by the HTTP layer.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsExpired(err):
		return http.StatusGone
	case IsInvalidQuery(err), IsDimensionMismatch(err), IsConfig(err), IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
