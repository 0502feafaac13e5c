// Package chat defines the contract between git2gpt and a
// large-language-model chat service.
//
// The Client interface sends an ordered list of role-tagged messages
// and returns the model's text reply. Implementations live in
// sub-packages (see chat/openai). ClientFunc lets plain functions
// satisfy the interface. Failures talking to the provider are
// reported as *RemoteServiceError; there are no retries.
package chat
