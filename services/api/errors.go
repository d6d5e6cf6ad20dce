package apiclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// ErrUnauthorized matches (errors.Is) any 401 answer. It is terminal: the session has to log in again.
var ErrUnauthorized = errors.New("unauthorized")

// keys the backend uses for messages that are not tied to a field
var generalKeys = map[string]bool{
	"detail":           true,
	"error":            true,
	"non_field_errors": true,
	"mensaje":          true,
}

// Error is a non-2xx backend answer.
type Error struct {
	StatusCode int
	Detail     string              // plain-string body, or general message
	Fields     map[string][]string // field -> messages
}

func (err *Error) Error() string {
	return fmt.Sprintf("api: %d: %s", err.StatusCode, err.Message())
}

// Message flattens the body for display: "field: a, b; other: c".
// General messages come first, without a field prefix.
func (err *Error) Message() string {
	var parts []string
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	keys := make([]string, 0, len(err.Fields))
	for k := range err.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(err.Fields[k], ", "))
	}
	if len(parts) == 0 {
		return http.StatusText(err.StatusCode)
	}
	return strings.Join(parts, "; ")
}

func (err *Error) Is(target error) bool {
	return target == ErrUnauthorized && err.StatusCode == http.StatusUnauthorized
}

// parseError reads an error body: a JSON string, a JSON object of field -> string | []string,
// or anything else as plain text.
func parseError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return apiErr
	}

	value, dataType, _, err := jsonparser.Get(body)
	if err != nil {
		apiErr.Detail = truncate(trimmed, 200)
		return apiErr
	}
	switch dataType {
	case jsonparser.String:
		apiErr.Detail = unescape(value)
	case jsonparser.Array:
		apiErr.Detail = strings.Join(messages(value, dataType), ", ")
	case jsonparser.Object:
		var general []string
		_ = jsonparser.ObjectEach(body, func(key, val []byte, dt jsonparser.ValueType, _ int) error {
			k, msgs := string(key), messages(val, dt)
			if len(msgs) == 0 {
				return nil
			}
			if generalKeys[k] {
				general = append(general, msgs...)
				return nil
			}
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[k] = append(apiErr.Fields[k], msgs...)
			return nil
		})
		apiErr.Detail = strings.Join(general, "; ")
	default:
		apiErr.Detail = trimmed
	}
	return apiErr
}

func messages(value []byte, dataType jsonparser.ValueType) []string {
	switch dataType {
	case jsonparser.String:
		return []string{unescape(value)}
	case jsonparser.Array:
		var msgs []string
		_, _ = jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, _ error) {
			msgs = append(msgs, messages(v, dt)...)
		})
		return msgs
	case jsonparser.Object:
		// nested serializer errors: {"rol": {"id": ["invalid"]}}
		nested := parseError(0, value)
		if msg := nested.Message(); msg != "" {
			return []string{msg}
		}
		return nil
	case jsonparser.Null, jsonparser.NotExist:
		return nil
	}
	return []string{string(value)}
}

func unescape(value []byte) string {
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return string(value)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
