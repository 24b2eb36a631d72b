// Package provider defines the contract between the relay and generative
// text backends.
//
// A Backend opens a TextStream for one prompt. Adapters read the upstream
// HTTP body in a goroutine and hand chunks to a ChanStream, whose Next
// selects on the chunk channel and the caller's context so the relay can
// bound each wait. Closing the stream cancels the upstream request.
//
// Adapters live in subpackages: gemini (Google Generative Language API)
// and openaicompat (any Chat Completions server).
package provider
