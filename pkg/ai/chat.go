package ai

import "context"

// Conversation is a handle to an ongoing exchange with the chat model.
// Send suspends until the model replies and may fail on network errors or
// timeouts; callers decide how to degrade.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}

// ChatClient creates conversations bound to a system instruction.
// All chat providers implement this interface.
type ChatClient interface {
	NewConversation(systemInstruction string) Conversation
}
