// Package gemini implements provider.Backend for the Google Generative
// Language API. Completions are streamed from
// POST /v1beta/models/{model}:streamGenerateContent?alt=sse and the text
// parts of the first candidate are forwarded as chunks.
package gemini
