// ABOUTME: TransportError wraps every Bot API failure with the provider's own error text
// ABOUTME: Callers match it with errors.As; the relay never retries on it

package telegram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransportError is returned when a Bot API request fails at the HTTP or
// provider level.
type TransportError struct {
	Method      string // Bot API method, e.g. "sendMessage"
	StatusCode  int    // HTTP status, 0 if the request never completed
	ErrorCode   int    // Telegram error_code, if present
	Description string // Telegram description, if present
	Body        string // raw body when no description could be parsed
	Err         error  // underlying network or decode error
}

func (e *TransportError) Error() string {
	prefix := "telegram " + e.Method
	switch {
	case e.Description != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s: http %d: %s", prefix, e.StatusCode, e.Description)
	case e.Description != "":
		return fmt.Sprintf("%s: %s", prefix, e.Description)
	case e.Body != "" && e.StatusCode > 0:
		return fmt.Sprintf("%s: http %d: %s", prefix, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: http %d", prefix, e.StatusCode)
	default:
		return prefix + ": request failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newTransportError builds a TransportError from a failed response body,
// preferring Telegram's description over the raw payload.
func newTransportError(method string, status int, raw []byte) *TransportError {
	var env envelope[json.RawMessage]
	_ = json.Unmarshal(raw, &env)

	return &TransportError{
		Method:      method,
		StatusCode:  status,
		ErrorCode:   env.ErrorCode,
		Description: strings.TrimSpace(env.Description),
		Body:        strings.TrimSpace(string(raw)),
	}
}
