package scpi

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// testInstrument is a minimal line-oriented instrument: it records
// every command it receives and answers each line through respond.
type testInstrument struct {
	ln      net.Listener
	respond func(cmd string) string

	mu       sync.Mutex
	commands []string
}

func newTestInstrument(t *testing.T, respond func(cmd string) string) *testInstrument {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	ti := &testInstrument{ln: ln, respond: respond}
	go ti.serve()
	t.Cleanup(func() { ln.Close() })
	return ti
}

func (ti *testInstrument) serve() {
	for {
		conn, err := ti.ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				cmd := scanner.Text()
				ti.mu.Lock()
				ti.commands = append(ti.commands, cmd)
				ti.mu.Unlock()
				if reply := ti.respond(cmd); reply != "" {
					conn.Write([]byte(reply + "\n"))
				}
			}
		}(conn)
	}
}

func (ti *testInstrument) received() []string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return append([]string{}, ti.commands...)
}

func (ti *testInstrument) port() int {
	return ti.ln.Addr().(*net.TCPAddr).Port
}

func echoAll(cmd string) string { return "ok:" + cmd }

func TestSendCommandImplicitConnect(t *testing.T) {
	ti := newTestInstrument(t, echoAll)
	c := NewClient("127.0.0.1", ti.port())
	defer c.Close()

	// no explicit Connect(); SendCommand must dial on its own
	resp, err := c.SendCommand("*IDN?")
	if err != nil {
		t.Fatalf("send command: %v", err)
	}
	if resp != "ok:*IDN?" {
		t.Fatalf("expected trimmed response %q, got %q", "ok:*IDN?", resp)
	}
}

func TestSendCommandTrimsResponse(t *testing.T) {
	ti := newTestInstrument(t, func(cmd string) string { return "  spacey reply\t" })
	c := NewClient("127.0.0.1", ti.port())
	defer c.Close()

	resp, err := c.SendCommand("MEASure:VOLTage?")
	if err != nil {
		t.Fatalf("send command: %v", err)
	}
	if resp != "spacey reply" {
		t.Fatalf("expected trimmed response, got %q", resp)
	}
}

func TestConnectRefused(t *testing.T) {
	// grab a port and close it again so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewClient("127.0.0.1", port)
	err = c.Connect()
	if err == nil {
		t.Fatal("expected connection error")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
	if !strings.Contains(connErr.Addr, "127.0.0.1") {
		t.Fatalf("error should carry the address, got %q", connErr.Addr)
	}
}

func TestConnectTwiceIsAnError(t *testing.T) {
	ti := newTestInstrument(t, echoAll)
	c := NewClient("127.0.0.1", ti.port())
	defer c.Close()

	if err := c.Connect(); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := c.Connect(); err == nil {
		t.Fatal("second connect should fail, not reconnect")
	}
}

func TestEmptyResponseOnSilentInstrument(t *testing.T) {
	// instrument that reads commands but never answers
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
		}
	}()

	c := NewClient("127.0.0.1", ln.Addr().(*net.TCPAddr).Port)
	c.Timeout = 150 * time.Millisecond
	defer c.Close()

	resp, err := c.SendCommand("CHAN 1")
	if err != nil {
		t.Fatalf("a silent instrument is not a transport fault: %v", err)
	}
	if resp != "" {
		t.Fatalf("expected empty response, got %q", resp)
	}
}

func TestSendAfterPeerClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	c := NewClient("127.0.0.1", ln.Addr().(*net.TCPAddr).Port)
	defer c.Close()
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// give the peer a moment to drop the connection
	time.Sleep(50 * time.Millisecond)
	_, err = c.SendCommand("*IDN?")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError after peer close, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ti := newTestInstrument(t, echoAll)
	c := NewClient("127.0.0.1", ti.port())
	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	// closing an unconnected client is fine too
	if err := NewClient("127.0.0.1", 1).Close(); err != nil {
		t.Fatalf("close unconnected: %v", err)
	}
}

func TestDefaultPortFallback(t *testing.T) {
	c := NewClient("10.0.0.5", 0)
	if c.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, c.Port)
	}
	if c.Addr() != "10.0.0.5:5025" {
		t.Fatalf("unexpected addr %q", c.Addr())
	}
}

func TestCommandOrderPreserved(t *testing.T) {
	ti := newTestInstrument(t, echoAll)
	c := NewClient("127.0.0.1", ti.port())
	defer c.Close()

	sent := []string{"*IDN?", "CHAN 1", "FUNC VOLT", "VOLT 5"}
	for _, cmd := range sent {
		if _, err := c.SendCommand(cmd); err != nil {
			t.Fatalf("send %q: %v", cmd, err)
		}
	}
	got := ti.received()
	if len(got) != len(sent) {
		t.Fatalf("expected %d commands, got %v", len(sent), got)
	}
	for i := range sent {
		if got[i] != sent[i] {
			t.Fatalf("command %d: expected %q, got %q", i, sent[i], got[i])
		}
	}
}
