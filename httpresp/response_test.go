package httpresp

import (
	"strings"
	"testing"

	"github.com/emberhttp/ember/iobuf"
)

func TestSerializeIntoProducesStatusLine(t *testing.T) {
	r := New(200)
	r.Headers.Set("Content-Type", "text/plain")
	r.Body = []byte("hello")

	buf := iobuf.New(0)
	r.SerializeInto(buf)

	out := string(buf.ReadableSpan())
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected status line in %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain\r\n") {
		t.Fatalf("expected Content-Type header in %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Fatalf("expected computed Content-Length in %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Fatalf("expected body after blank line in %q", out)
	}
}

func TestSerializeIntoRespectsExplicitContentLength(t *testing.T) {
	r := New(204)
	r.Headers.Set("Content-Length", "0")

	buf := iobuf.New(0)
	r.SerializeInto(buf)

	out := string(buf.ReadableSpan())
	if strings.Count(out, "Content-Length:") != 1 {
		t.Fatalf("expected exactly one Content-Length header, got %q", out)
	}
}

func TestProblemDetailsSerialization(t *testing.T) {
	pd := NewProblem(404, "no route for /missing", NewInstanceID())
	resp := pd.Response()

	ct, ok := resp.Headers.Get("Content-Type")
	if !ok || ct != "application/problem+json" {
		t.Fatalf("expected application/problem+json content type, got %q", ct)
	}
	if !strings.Contains(string(resp.Body), `"status":404`) {
		t.Fatalf("expected status field in problem body: %s", resp.Body)
	}
	if !strings.Contains(string(resp.Body), `"title":"Not Found"`) {
		t.Fatalf("expected precomputed title in problem body: %s", resp.Body)
	}
}

func TestProblemTitleFallsBackForUnmappedStatus(t *testing.T) {
	pd := NewProblem(409, "duplicate", NewInstanceID())
	if pd.Title != "Conflict" {
		t.Fatalf("expected fallback title Conflict, got %q", pd.Title)
	}
}

func TestInstanceIDsAreUnique(t *testing.T) {
	a := NewInstanceID()
	b := NewInstanceID()
	if a == b {
		t.Fatalf("expected distinct instance IDs, got %q twice", a)
	}
}
