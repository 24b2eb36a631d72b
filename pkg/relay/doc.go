// Package relay forwards a streamed completion from a provider.Backend to
// an SSE client.
//
// One call to Relay.Stream moves a request through
//
//	PromptBuilt -> BackendStreamOpening -> Streaming -> ChunkForwarded* -> terminal
//
// where the terminal state is exactly one of Completed, UpstreamError or
// ClientDisconnect (or OpenFailed / InvalidRequest before any header is
// committed). Headers are committed only after the backend stream is open,
// so every failure before that point can still be reported as JSON.
package relay
