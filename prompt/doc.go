// Package prompt builds the role-tagged message list sent to the
// chat model.
//
// Message bodies are templates expanded with valyala/fasttemplate using
// "{{" and "}}" delimiters. Available variables are {{snapshot}} (the
// JSON repository snapshot), {{prompt}} (the operator's instruction or
// question) and {{schema}} (the mutation wire format). Unknown
// variables are left as-is. The snapshot always travels in the first
// message and system messages always precede the user message.
package prompt
