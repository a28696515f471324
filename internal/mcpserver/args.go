// ABOUTME: Argument extraction for tool calls
// ABOUTME: Required fields must be present and strings; anything else is an invalid argument

package mcpserver

import "fmt"

// ArgumentError reports a missing or mistyped tool argument.
type ArgumentError struct {
	Name   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Reason)
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", &ArgumentError{Name: name, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Name: name, Reason: fmt.Sprintf("must be a string, got %T", v)}
	}
	return s, nil
}

func conversationArgs(args map[string]any) (id, message string, err error) {
	if id, err = stringArg(args, "conversation_id"); err != nil {
		return "", "", err
	}
	if message, err = stringArg(args, "message"); err != nil {
		return "", "", err
	}
	return id, message, nil
}
