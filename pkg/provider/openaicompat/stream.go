package openaicompat

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rhuss/mediscribe/pkg/debug"
	"github.com/rhuss/mediscribe/pkg/provider"
)

// ParseSSEStream reads Chat Completions SSE chunks from body and sends the
// content delta of the first choice on ch. The channel is NOT closed by
// this function; the caller is responsible for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// A malformed chunk, an in-band error payload or a content_filter finish
// ends the stream with an error. A body that closes without [DONE] is
// treated as a normal end, as some servers omit the sentinel.
func ParseSSEStream(ctx context.Context, backend string, body io.Reader, ch chan<- provider.StreamEvent) error {
	return provider.ScanSSE(ctx, body, func(payload string) error {
		if payload == "[DONE]" {
			return provider.ErrStopScan
		}

		debug.Trace("providers", "chat chunk", "backend", backend, "data", debug.Truncate(payload, 500))

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return &provider.Error{Backend: backend, Message: "malformed stream chunk", Err: err}
		}
		if chunk.ID == "" && len(chunk.Choices) == 0 && chunk.Usage == nil {
			if msg := ExtractErrorMessage([]byte(payload)); msg != "" {
				return &provider.Error{Backend: backend, Message: msg}
			}
		}

		if chunk.Usage != nil {
			debug.Log("providers", "chat usage",
				"backend", backend,
				"prompt_tokens", chunk.Usage.PromptTokens,
				"completion_tokens", chunk.Usage.CompletionTokens,
			)
		}
		if len(chunk.Choices) == 0 {
			return nil
		}

		choice := chunk.Choices[0]
		if text := ExtractDeltaContent(choice.Delta.Content); text != "" {
			if !provider.Send(ctx, ch, provider.StreamEvent{Text: text}) {
				return context.Cause(ctx)
			}
		}

		if choice.FinishReason != nil && *choice.FinishReason == "content_filter" {
			return &provider.Error{
				Backend: backend,
				Message: "response blocked: content_filter",
				Err:     provider.ErrStreamTruncated,
			}
		}
		return nil
	})
}

// ExtractDeltaContent safely extracts the content string from a delta pointer.
func ExtractDeltaContent(content *string) string {
	if content == nil {
		return ""
	}
	return *content
}
