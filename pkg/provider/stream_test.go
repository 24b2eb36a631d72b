package provider

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestChanStream_YieldsChunksThenEOF(t *testing.T) {
	ch := make(chan StreamEvent, 3)
	ch <- StreamEvent{Text: "a"}
	ch <- StreamEvent{Text: ""}
	ch <- StreamEvent{Text: "b"}
	close(ch)

	s := NewChanStream(ch, func() {})
	ctx := context.Background()

	var got []string
	for {
		c, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, c.Text)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "" || got[2] != "b" {
		t.Errorf("chunks = %q, want [a, \"\", b]", got)
	}

	// EOF is sticky.
	if _, err := s.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("second Next after end = %v, want io.EOF", err)
	}
}

func TestChanStream_ErrorIsSticky(t *testing.T) {
	boom := errors.New("boom")
	ch := make(chan StreamEvent, 2)
	ch <- StreamEvent{Err: boom}
	ch <- StreamEvent{Text: "never"}

	s := NewChanStream(ch, nil)
	for i := 0; i < 2; i++ {
		if _, err := s.Next(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Next #%d = %v, want boom", i, err)
		}
	}
}

func TestChanStream_ContextCause(t *testing.T) {
	idle := errors.New("idle")
	ch := make(chan StreamEvent)
	s := NewChanStream(ch, nil)

	ctx, cancel := context.WithTimeoutCause(context.Background(), 10*time.Millisecond, idle)
	defer cancel()

	if _, err := s.Next(ctx); !errors.Is(err, idle) {
		t.Errorf("Next = %v, want the context cause", err)
	}
}

func TestChanStream_CloseCancelsOnce(t *testing.T) {
	calls := 0
	s := NewChanStream(make(chan StreamEvent), func() { calls++ })
	s.Close()
	s.Close()
	if calls != 1 {
		t.Errorf("cancel called %d times, want 1", calls)
	}
}

func TestStartStream_ReaderErrorAfterFullBuffer(t *testing.T) {
	boom := errors.New("boom")
	s := StartStream(context.Background(), func() {}, func(_ context.Context, ch chan<- StreamEvent) error {
		for i := 0; i < streamBuffer; i++ {
			ch <- StreamEvent{Text: "x"}
		}
		return boom
	})

	n := 0
	for {
		_, err := s.Next(context.Background())
		if err == nil {
			n++
			continue
		}
		if !errors.Is(err, boom) {
			t.Fatalf("terminal = %v, want boom", err)
		}
		break
	}
	if n != streamBuffer {
		t.Errorf("chunks = %d, want %d", n, streamBuffer)
	}
}

func TestStartStream_CancelledReadIsNotEOF(t *testing.T) {
	cause := errors.New("deadline")
	ctx, cancel := context.WithCancelCause(context.Background())
	readerDone := make(chan struct{})

	s := StartStream(ctx, func() {}, func(ctx context.Context, _ chan<- StreamEvent) error {
		defer close(readerDone)
		<-ctx.Done()
		return nil
	})
	cancel(cause)
	<-readerDone

	// Both the closed channel and the done context are ready; either way
	// the result is the cause.
	for i := 0; i < 50; i++ {
		if _, err := s.Next(ctx); !errors.Is(err, cause) {
			t.Fatalf("Next = %v, want the cancel cause", err)
		}
	}

	// A live caller context still sees the reader's cause, not io.EOF.
	s2 := StartStream(ctx, func() {}, func(context.Context, chan<- StreamEvent) error { return nil })
	if _, err := s2.Next(context.Background()); !errors.Is(err, cause) {
		t.Errorf("Next = %v, want the cancel cause", err)
	}
}

func TestStartStream_ExhaustedIsEOF(t *testing.T) {
	s := StartStream(context.Background(), func() {}, func(_ context.Context, ch chan<- StreamEvent) error {
		ch <- StreamEvent{Text: "a"}
		return nil
	})
	if c, err := s.Next(context.Background()); err != nil || c.Text != "a" {
		t.Fatalf("Next = %q, %v", c.Text, err)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next = %v, want io.EOF", err)
	}
}

func TestSend_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if Send(ctx, make(chan StreamEvent), StreamEvent{Text: "x"}) {
		t.Error("Send should report false when the context is done")
	}

	ch := make(chan StreamEvent, 1)
	if !Send(context.Background(), ch, StreamEvent{Text: "x"}) {
		t.Error("Send should succeed on a buffered channel")
	}
}
