// Package openaicompat implements provider.Backend for any OpenAI-compatible
// Chat Completions server. It handles request serialization, SSE chunk
// parsing and error mapping.
package openaicompat
