package loadsetup

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockInstrument emulates one instrument for the orchestration and
// telemetry tests: it records every received command and answers each
// line from a reply table, with an optional delay per reply.
type mockInstrument struct {
	ln    net.Listener
	idn   string
	delay time.Duration

	// replies maps a command prefix to its response; commands without
	// a match are acknowledged with "OK" so the client read returns
	// promptly.
	replies map[string]string

	mu       sync.Mutex
	commands []string
}

func newMockInstrument(t *testing.T, idn string) *mockInstrument {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	mi := &mockInstrument{
		ln:  ln,
		idn: idn,
		replies: map[string]string{
			CmdMeasureCurrent:    "0.100",
			CmdMeasureVoltage:    "12.00",
			CmdMeasureResistance: "120.0",
		},
	}
	go mi.serve()
	t.Cleanup(func() { ln.Close() })
	return mi
}

func (mi *mockInstrument) serve() {
	for {
		conn, err := mi.ln.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				cmd := scanner.Text()
				mi.mu.Lock()
				mi.commands = append(mi.commands, cmd)
				mi.mu.Unlock()
				if mi.delay > 0 {
					time.Sleep(mi.delay)
				}
				conn.Write([]byte(mi.reply(cmd) + "\n"))
			}
		}(conn)
	}
}

func (mi *mockInstrument) reply(cmd string) string {
	if cmd == CmdIdentify {
		return mi.idn
	}
	for prefix, response := range mi.replies {
		if strings.HasPrefix(cmd, prefix) {
			return response
		}
	}
	return "OK"
}

func (mi *mockInstrument) received() []string {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return append([]string{}, mi.commands...)
}

func (mi *mockInstrument) host() string {
	return "127.0.0.1"
}

func (mi *mockInstrument) port() int {
	return mi.ln.Addr().(*net.TCPAddr).Port
}

// closedPort() returns a port nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}
