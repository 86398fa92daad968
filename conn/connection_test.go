package conn

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/emberhttp/ember/reactor"
	"github.com/emberhttp/ember/router"
)

// newConnectedPair returns a socketpair's two ends: serverFD (given to a
// Driver, set non-blocking as accept4 would leave it) and clientFD (used by
// the test to play the role of the remote peer).
func newConnectedPair(t *testing.T) (serverFD, clientFD int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("SetNonblock: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func buildTestTable(t *testing.T) *router.Table {
	t.Helper()
	table := router.NewTable()
	route, err := router.NewRoute("GET", "/hello", func(ctx *router.Context) {
		ctx.Response.Status = 200
		ctx.Response.Body = []byte("hi")
		ctx.Response.Headers.Set("Content-Type", "text/plain")
	})
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	table.Add(route)
	table.Build()
	return table
}

func readAll(t *testing.T, fd int, timeout time.Duration) string {
	t.Helper()
	out := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := unix.Read(fd, buf)
		out <- string(buf[:n])
	}()
	select {
	case s := <-out:
		return s
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for data on fd %d", fd)
		return ""
	}
}

func TestDriverServesMatchedRoute(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Fatalf("expected 200 OK status line, got %q", resp)
	}
	if !strings.Contains(resp, "hi") {
		t.Fatalf("expected body %q in response, got %q", "hi", resp)
	}
	if !strings.Contains(resp, "Connection: keep-alive") {
		t.Fatalf("expected keep-alive on HTTP/1.1 request, got %q", resp)
	}
}

func TestDriverBindsMultiSegmentParamsAndStripsQuery(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)

	table := router.NewTable()
	route, err := router.NewRoute("GET", "/orders/{orderId}/items/{itemId}", func(ctx *router.Context) {
		orderID, _ := ctx.Param("orderId")
		itemID, _ := ctx.Param("itemId")
		q, hasQuery := ctx.Query("expand")
		ctx.Response.Status = 200
		ctx.Response.Headers.Set("Content-Type", "text/plain")
		body := orderID + "/" + itemID
		if hasQuery {
			body += "?" + q
		}
		ctx.Response.Body = []byte(body)
	})
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	table.Add(route)
	table.Build()

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	req := "GET /orders/abc/items/99?expand=full HTTP/1.1\r\nHost: x\r\n\r\n"
	if _, err := unix.Write(clientFD, []byte(req)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Fatalf("expected 200 OK status line, got %q", resp)
	}
	if !strings.Contains(resp, "abc/99?full") {
		t.Fatalf("expected captured params and query value in body, got %q", resp)
	}
}

func TestDriverPipelinesTwoRequestsFromOneRead(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	both := "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n" + "GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"
	if _, err := unix.Write(clientFD, []byte(both)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var collected string
	for strings.Count(collected, "HTTP/1.1 200 OK") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for two pipelined responses, got %q", collected)
		}
		collected += readAll(t, clientFD, 2*time.Second)
	}
	if strings.Count(collected, "HTTP/1.1 200 OK") != 2 {
		t.Fatalf("expected exactly two 200 responses from one pipelined write, got %q", collected)
	}
}

func TestDriverElidesBodyForAutoDispatchedHead(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("HEAD /hello HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK") {
		t.Fatalf("expected 200 OK status line for auto-dispatched HEAD, got %q", resp)
	}
	if !strings.Contains(resp, "Content-Length: 2") {
		t.Fatalf("expected Content-Length reflecting the GET handler's body, got %q", resp)
	}
	if strings.Contains(resp, "hi") {
		t.Fatalf("expected HEAD response body to be elided, got %q", resp)
	}
}

func TestDriverSetsDateAndServerHeaders(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	cfg := DefaultConfig()
	cfg.ServerName = "ember-test"
	d := New(serverFD, r, table, nil, nil, cfg)
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.Contains(resp, "Server: ember-test") {
		t.Fatalf("expected configured Server header, got %q", resp)
	}
	if !strings.Contains(resp, "Date: ") {
		t.Fatalf("expected a Date header, got %q", resp)
	}
}

func TestDriverReportsNotFound(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("GET /missing HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.HasPrefix(resp, "HTTP/1.1 404 Not Found") {
		t.Fatalf("expected 404 status line, got %q", resp)
	}
	if !strings.Contains(resp, "application/problem+json") {
		t.Fatalf("expected problem+json content type, got %q", resp)
	}
}

func TestDriverReportsMethodNotAllowedWithAllowHeader(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("POST /hello HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.HasPrefix(resp, "HTTP/1.1 405 Method Not Allowed") {
		t.Fatalf("expected 405 status line, got %q", resp)
	}
	if !strings.Contains(resp, "Allow: GET") {
		t.Fatalf("expected Allow: GET header, got %q", resp)
	}
}

func TestDriverClosesOnConnectionCloseHeader(t *testing.T) {
	serverFD, clientFD := newConnectedPair(t)
	table := buildTestTable(t)

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	go r.Run()
	defer r.Stop()

	d := New(serverFD, r, table, nil, nil, DefaultConfig())
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := unix.Write(clientFD, []byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	resp := readAll(t, clientFD, 2*time.Second)
	if !strings.Contains(resp, "Connection: close") {
		t.Fatalf("expected Connection: close in response, got %q", resp)
	}

	// The driver should have closed its end; a subsequent read should
	// observe EOF (n == 0) rather than blocking forever.
	done := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		unix.Read(clientFD, buf)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("server end never closed after Connection: close")
	}
}
