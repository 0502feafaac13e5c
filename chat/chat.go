package chat

import (
	"context"
	"fmt"
)

// Role tags who authored a message.
type Role string

// Message roles.
const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Message is one entry of a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Pattern: Strategy -- swap chat provider without
// changing the pipeline.

// Client sends a conversation and returns the reply.
type Client interface {
	Send(ctx context.Context, messages []Message) (string, error)
}

// ClientFunc adapts a plain function to the Client
// interface.
type ClientFunc func(
	ctx context.Context,
	messages []Message,
) (string, error)

// Send delegates to the wrapped function.
func (f ClientFunc) Send(
	ctx context.Context,
	messages []Message,
) (string, error) {
	return f(ctx, messages)
}

// RemoteServiceError reports a network, authentication,
// rate-limit or other provider failure.
type RemoteServiceError struct {
	// Provider names the chat service (e.g. "openai").
	Provider string
	// StatusCode is the HTTP status, 0 when no response
	// was received.
	StatusCode int
	// Message is the provider's error text, if any.
	Message string
	// Err is the transport error, if any.
	Err error
}

func (e *RemoteServiceError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}
