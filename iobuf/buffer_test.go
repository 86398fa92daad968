package iobuf

import "testing"

func TestCommitConsumeRoundTrip(t *testing.T) {
	b := New(16)
	dst := b.WritableSpan(5)
	copy(dst, []byte("hello"))
	b.Commit(5)

	if b.Empty() {
		t.Fatalf("expected buffer to be non-empty after commit")
	}
	if string(b.ReadableSpan()) != "hello" {
		t.Fatalf("got %q", b.ReadableSpan())
	}

	b.Consume(5)
	if !b.Empty() {
		t.Fatalf("expected buffer empty after consuming all readable bytes")
	}
}

func TestInvariantCursorOrdering(t *testing.T) {
	b := New(8)
	dst := b.WritableSpan(4)
	copy(dst, []byte("abcd"))
	b.Commit(4)
	b.Consume(2)

	if b.readCursor > b.writeCursor || b.writeCursor > len(b.buf) {
		t.Fatalf("cursor invariant violated: read=%d write=%d cap=%d", b.readCursor, b.writeCursor, len(b.buf))
	}
	if string(b.ReadableSpan()) != "cd" {
		t.Fatalf("got %q", b.ReadableSpan())
	}
}

func TestWritableSpanGrowsWhenFull(t *testing.T) {
	b := New(4)
	dst := b.WritableSpan(4)
	copy(dst, []byte("abcd"))
	b.Commit(4)

	grown := b.WritableSpan(10)
	if len(grown) < 10 {
		t.Fatalf("expected writable span to grow to at least 10, got %d", len(grown))
	}
	if string(b.ReadableSpan()) != "abcd" {
		t.Fatalf("growth must preserve unread bytes, got %q", b.ReadableSpan())
	}
}

func TestCompactionReclaimsConsumedSpace(t *testing.T) {
	b := New(8)
	dst := b.WritableSpan(8)
	copy(dst, []byte("abcdefgh"))
	b.Commit(8)
	b.Consume(4)

	// No room left at the tail without compaction; WritableSpan must
	// compact rather than grow since 4 bytes were freed at the head.
	free := b.WritableSpan(4)
	if len(free) < 4 {
		t.Fatalf("expected compaction to free 4 bytes, got %d", len(free))
	}
	if string(b.ReadableSpan()) != "efgh" {
		t.Fatalf("compaction must preserve unread bytes, got %q", b.ReadableSpan())
	}
}

func TestClear(t *testing.T) {
	b := New(8)
	dst := b.WritableSpan(4)
	copy(dst, []byte("data"))
	b.Commit(4)
	b.Clear()
	if !b.Empty() || b.Len() != 0 {
		t.Fatalf("expected cleared buffer to be empty")
	}
}

func TestConsumeToEmptyResetsCursors(t *testing.T) {
	b := New(8)
	dst := b.WritableSpan(4)
	copy(dst, []byte("data"))
	b.Commit(4)
	b.Consume(4)

	if b.readCursor != 0 || b.writeCursor != 0 {
		t.Fatalf("expected cursors reset to 0 once buffer drained, got read=%d write=%d", b.readCursor, b.writeCursor)
	}
}
