package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tjfontaine/autoclean-api/internal/envelope"
	"github.com/tjfontaine/autoclean-api/internal/validation"
)

// ValidationFailedMessage is the failure message for rejected payloads.
const ValidationFailedMessage = "Validation failed"

// MaxBodyBytes bounds the request body read by the validation stage.
const MaxBodyBytes = 1 << 20

// ValidationDetails is the details member of a validation failure.
type ValidationDetails struct {
	Errors []validation.Issue `json:"errors"`
}

type (
	bodyKey  struct{}
	queryKey struct{}
)

// Validate returns a stage that parses the JSON request body against schema.
// A missing body is validated as an empty object. On success the parsed value
// replaces the body and is available from Payload. On rule violations the
// stage answers 400 itself. Any other schema failure is returned unchanged.
func Validate(schema validation.Schema) Stage {
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			raw, err := readBody(r)
			if err != nil {
				var syntax *invalidJSONError
				if errors.As(err, &syntax) {
					writeValidationFailure(w, []validation.Issue{{Message: syntax.Error()}})
					return nil
				}
				return err
			}

			parsed, ok, err := parsePayload(r.Context(), w, schema, raw)
			if !ok {
				return err
			}

			body, err := json.Marshal(parsed)
			if err != nil {
				return fmt.Errorf("encode validated body: %w", err)
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))

			ctx := context.WithValue(r.Context(), bodyKey{}, parsed)
			return next(w, r.WithContext(ctx))
		}
	}
}

// ValidateQuery is Validate for the URL query string. Single-valued
// parameters become strings and repeated ones arrays of strings, so numeric
// rules need Coerce.
func ValidateQuery(schema validation.Schema) Stage {
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			parsed, ok, err := parsePayload(r.Context(), w, schema, queryValues(r.URL.Query()))
			if !ok {
				return err
			}
			ctx := context.WithValue(r.Context(), queryKey{}, parsed)
			return next(w, r.WithContext(ctx))
		}
	}
}

// Payload returns the body parsed by Validate, or nil.
func Payload(ctx context.Context) any {
	return ctx.Value(bodyKey{})
}

// Query returns the query parsed by ValidateQuery, or nil.
func Query(ctx context.Context) any {
	return ctx.Value(queryKey{})
}

// Bind decodes the validated payload into T.
func Bind[T any](ctx context.Context) (T, error) {
	var out T
	v := Payload(ctx)
	if v == nil {
		return out, errors.New("no validated payload in context")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("bind payload: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("bind payload: %w", err)
	}
	return out, nil
}

// parsePayload reports ok=false when the request has been answered or must
// fail with err.
func parsePayload(ctx context.Context, w http.ResponseWriter, schema validation.Schema, raw any) (any, bool, error) {
	parsed, err := schema.Parse(ctx, raw)
	if err == nil {
		return parsed, true, nil
	}
	if verr, ok := validation.AsError(err); ok {
		writeValidationFailure(w, verr.Issues)
		return nil, false, nil
	}
	return nil, false, err
}

func writeValidationFailure(w http.ResponseWriter, issues []validation.Issue) {
	if issues == nil {
		issues = []validation.Issue{}
	}
	envelope.WriteFailure(w, http.StatusBadRequest, ValidationFailedMessage, ValidationDetails{Errors: issues})
}

type invalidJSONError struct {
	err error
}

func (e *invalidJSONError) Error() string {
	return "Invalid JSON: " + e.err.Error()
}

func (e *invalidJSONError) Unwrap() error { return e.err }

func readBody(r *http.Request) (any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, &invalidJSONError{err: errors.New("body too large")}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &invalidJSONError{err: err}
	}
	if dec.More() {
		return nil, &invalidJSONError{err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

func queryValues(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		switch len(vs) {
		case 0:
		case 1:
			out[k] = vs[0]
		default:
			arr := make([]any, len(vs))
			for i, v := range vs {
				arr[i] = v
			}
			out[k] = arr
		}
	}
	return out
}
