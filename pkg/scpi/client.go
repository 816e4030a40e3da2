// The scpi package implements a minimal client for the line-oriented
// SCPI instrument-control protocol carried over TCP. Instruments accept
// one ASCII command per line and answer with a single line response.
//
// The protocol is stateful: a channel-select command (e.g. "CHAN 2")
// establishes context for every command that follows on the same
// connection until the next select. The client does not track that
// context itself; callers must not interleave commands for different
// channels on one client without re-selecting.
package scpi

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPort is the conventional SCPI-over-TCP port.
	DefaultPort = 5025

	// DefaultTimeout bounds every dial, write and read on a client.
	DefaultTimeout = 5 * time.Second

	// maxResponseSize caps a single response line. Replies longer than
	// this are truncated at the cap rather than reassembled.
	maxResponseSize = 64 * 1024
)

// ConnectionError wraps any transport-level fault (refusal, timeout,
// disconnect, send/receive error) with the instrument address it
// occurred on.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Channel describes one instrument channel bound to a client. The
// fields are copied from the owning device config at initialization
// time; Mode and Setpoint are unused for supply channels.
type Channel struct {
	Number   int
	Name     string
	Mode     string
	Setpoint float64
}

// Client speaks the SCPI line protocol to a single instrument. A
// client allows exactly one outstanding request at a time; concurrent
// SendCommand() calls are serialized internally.
type Client struct {
	Host     string
	Port     int
	Channels []Channel

	Timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// NewClient() returns an unconnected client for the given address. A
// port <= 0 falls back to DefaultPort.
func NewClient(host string, port int) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	return &Client{
		Host:    host,
		Port:    port,
		Timeout: DefaultTimeout,
	}
}

// Addr() returns the host:port string used for dialing and for error
// attribution.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Connect() opens the TCP connection to the instrument. Calling it on
// an already-connected client is an error, not a reconnect.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect()
}

func (c *Client) connect() error {
	if c.conn != nil {
		return &ConnectionError{Addr: c.Addr(), Err: fmt.Errorf("already connected")}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("tcp", c.Addr(), timeout)
	if err != nil {
		return &ConnectionError{Addr: c.Addr(), Err: err}
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, maxResponseSize)
	return nil
}

// SendCommand() writes one command line and performs exactly one
// blocking read of the response. It connects implicitly if the client
// has not been connected yet. The response is returned decoded and
// trimmed; an instrument that answers with nothing before the timeout
// yields an empty string. Transport faults surface as *ConnectionError
// and are never retried here.
func (c *Client) SendCommand(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(); err != nil {
			return "", err
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", &ConnectionError{Addr: c.Addr(), Err: err}
	}
	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		return "", &ConnectionError{Addr: c.Addr(), Err: err}
	}
	return c.readResponse()
}

// readResponse() reads up to the line terminator instead of doing a
// single fixed-size receive, so a reply split across packets is still
// reassembled. Lines longer than the reader's buffer come back in
// fragments via ErrBufferFull; we keep the first fragment and treat
// the rest as truncated.
func (c *Client) readResponse() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if isTimeout(err) && line == "" {
			// no reply before the deadline counts as an empty response
			return "", nil
		}
		if line == "" {
			return "", &ConnectionError{Addr: c.Addr(), Err: err}
		}
		// partial line (EOF without terminator, or an oversized reply)
	}
	return strings.TrimSpace(line), nil
}

// Close() releases the transport. Safe to call repeatedly; closing an
// unconnected client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
