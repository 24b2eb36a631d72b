package provider

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// maxSSELine bounds a single upstream SSE line. Candidate payloads with
// safety metadata can exceed bufio's 64KB default.
const maxSSELine = 1 << 20

// ErrStopScan may be returned by a ScanSSE callback to end scanning
// without an error.
var ErrStopScan = errors.New("stop scan")

// ScanSSE reads an upstream SSE body and calls onData with the payload of
// every dispatched event. Multiple data lines of one event are joined with
// "\n"; comments and other fields are ignored.
//
// Returning ErrStopScan from onData stops without error; any other error
// is returned as is. Context cancellation stops reading and returns the
// context's cause.
func ScanSSE(ctx context.Context, body io.Reader, onData func(payload string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	var data []string
	dispatch := func() error {
		if len(data) == 0 {
			return nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		return onData(payload)
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return stopOrErr(err)
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}

	// A final event without the trailing blank line is still delivered.
	return stopOrErr(dispatch())
}

func stopOrErr(err error) error {
	if errors.Is(err, ErrStopScan) {
		return nil
	}
	return err
}
