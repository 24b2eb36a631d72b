package http

import (
	"context"
	"io"
	"net"
	gohttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/mediscribe/pkg/provider/providertest"
	"github.com/rhuss/mediscribe/pkg/relay"
	"github.com/rhuss/mediscribe/pkg/transport"
)

// startServer serves a router over b on a random port. The returned cancel
// func triggers graceful shutdown; the channel yields ServeOn's result.
func startServer(t *testing.T, b *providertest.Backend, opts ...ServerOption) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	r, err := relay.New(b, relay.Config{}, nil)
	if err != nil {
		t.Fatalf("relay.New: %v", err)
	}
	inflight := transport.NewInFlightRegistry()
	handler := NewRouter(RouterConfig{
		Adapter:   NewAdapter(r, inflight, Config{}),
		AuthChain: testChain(),
	})
	srv := NewServer(handler, inflight, opts...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ctx, ln) }()
	t.Cleanup(cancel)

	return "http://" + ln.Addr().String(), cancel, done
}

func postConsultation(base string) (*gohttp.Response, error) {
	req, _ := gohttp.NewRequest(gohttp.MethodPost, base+ConsultationPath, strings.NewReader(janeDoeBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testKey)
	return gohttp.DefaultClient.Do(req)
}

func waitServe(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeOn returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerStartsAndStreams(t *testing.T) {
	base, stop, done := startServer(t, &providertest.Backend{Chunks: []string{"hello"}})

	resp, err := postConsultation(base)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "data: hello\n\nevent: done\ndata: [DONE]\n\n" {
		t.Errorf("body = %q", body)
	}

	stop()
	waitServe(t, done)
}

func TestServerGracefulShutdownCompletesStreams(t *testing.T) {
	b := &providertest.Backend{Chunks: []string{"a", "b", "c"}, Delay: 50 * time.Millisecond}
	base, stop, done := startServer(t, b, WithShutdownTimeout(5*time.Second))

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := postConsultation(base)
		if err != nil {
			bodyCh <- ""
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		bodyCh <- string(body)
	}()

	time.Sleep(60 * time.Millisecond)
	stop()

	body := <-bodyCh
	if !strings.HasSuffix(body, "event: done\ndata: [DONE]\n\n") {
		t.Errorf("in-flight stream should complete during shutdown, body = %q", body)
	}
	waitServe(t, done)
}

func TestServerShutdownTimeoutCancelsStreams(t *testing.T) {
	b := &providertest.Backend{Chunks: []string{"partial"}, Hang: true}
	base, stop, done := startServer(t, b, WithShutdownTimeout(100*time.Millisecond))

	bodyCh := make(chan string, 1)
	go func() {
		resp, err := postConsultation(base)
		if err != nil {
			bodyCh <- ""
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		bodyCh <- string(body)
	}()

	time.Sleep(50 * time.Millisecond)
	stop()

	body := <-bodyCh
	want := "data: partial\n\nevent: error\ndata: {\"error\":\"Internal server error\"}\n\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	waitServe(t, done)
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(gohttp.NotFoundHandler(), nil,
		WithAddr(":9999"),
		WithShutdownTimeout(10*time.Second),
		WithReadHeaderTimeout(3*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.httpServer.ReadHeaderTimeout != 3*time.Second {
		t.Errorf("read header timeout = %v, want 3s", srv.httpServer.ReadHeaderTimeout)
	}
	if srv.httpServer.WriteTimeout != 0 {
		t.Error("streaming server must not set a write timeout")
	}
}
