package server

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/router"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServerServesOverRealSocket(t *testing.T) {
	port := freePort(t)

	table := router.NewTable()
	route, err := router.NewRoute("GET", "/ping", func(ctx *router.Context) {
		ctx.Response.Status = 200
		ctx.Response.Body = []byte("pong")
	})
	if err != nil {
		t.Fatalf("NewRoute: %v", err)
	}
	table.Add(route)
	table.Build()

	cfg := &config.Config{
		Port:          port,
		Workers:       1,
		ReusePort:     false,
		IdleTimeout:   5 * time.Second,
		ShutdownGrace: 2 * time.Second,
	}

	s := New(cfg, table, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err = net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("could not connect: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if !strings.HasPrefix(statusLine, "HTTP/1.1 200") {
		t.Fatalf("expected 200 status line, got %q", statusLine)
	}
}
