package provider

import (
	"context"
	"io"
	"sync"
)

// StreamEvent is what a backend reader goroutine hands to a ChanStream.
// Exactly one of Text or Err is meaningful.
type StreamEvent struct {
	Text string
	Err  error
}

// streamBuffer is the number of chunks a reader may run ahead of Next.
const streamBuffer = 16

// ChanStream is a TextStream fed by a reader goroutine over a channel.
// The goroutine closes the channel when the upstream body ends.
type ChanStream struct {
	ch     <-chan StreamEvent
	cancel context.CancelFunc

	// final is the reader's terminal error. It is written before the
	// channel is closed and read only after the close is observed.
	final error

	err       error
	closeOnce sync.Once
}

var _ TextStream = (*ChanStream)(nil)

// NewChanStream wraps ch. cancel stops the upstream request and is called
// by Close.
func NewChanStream(ch <-chan StreamEvent, cancel context.CancelFunc) *ChanStream {
	return &ChanStream{ch: ch, cancel: cancel}
}

// StartStream runs read in a goroutine that feeds a new ChanStream. read
// returns nil when the upstream body is exhausted; any other result ends the
// stream with that error. If ctx is done when read returns, the stream ends
// with ctx's cause, so a cancelled read is never reported as a normal end.
// cancel stops the upstream request and is called by Close.
func StartStream(ctx context.Context, cancel context.CancelFunc, read func(ctx context.Context, ch chan<- StreamEvent) error) *ChanStream {
	ch := make(chan StreamEvent, streamBuffer)
	s := &ChanStream{ch: ch, cancel: cancel}
	go func() {
		err := read(ctx, ch)
		if err == nil && ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		s.final = err
		close(ch)
	}()
	return s
}

// Next returns the next chunk. io.EOF is returned only when the reader
// exhausted the upstream body and ctx is still live. After a terminal
// result every further call returns the same error.
func (s *ChanStream) Next(ctx context.Context) (Chunk, error) {
	if s.err != nil {
		return Chunk{}, s.err
	}
	select {
	case <-ctx.Done():
		return Chunk{}, context.Cause(ctx)
	case ev, ok := <-s.ch:
		if !ok {
			switch {
			case ctx.Err() != nil:
				s.err = context.Cause(ctx)
			case s.final != nil:
				s.err = s.final
			default:
				s.err = io.EOF
			}
			return Chunk{}, s.err
		}
		if ev.Err != nil {
			s.err = ev.Err
			return Chunk{}, ev.Err
		}
		return Chunk{Text: ev.Text}, nil
	}
}

// Close cancels the upstream request.
func (s *ChanStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	return nil
}

// Send delivers ev unless ctx ends first. It reports whether ev was sent.
func Send(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
