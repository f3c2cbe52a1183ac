// Package mcubus provides a msgpack-rpc client over a Unix domain socket
// for talking to the two-wire-bus microcontroller that hosts the power
// monitor and MPPT driver. The wire protocol and connection-management
// style mirror a conventional Arduino/MCU router bridge: a long-lived
// socket, a mutex-guarded single connection, and reconnect-on-next-call.
package mcubus

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultSocketPath is where the bus bridge process listens.
	DefaultSocketPath = "/var/run/eps-bus.sock"

	ReadTimeout  = 2 * time.Second
	WriteTimeout = 2 * time.Second
)

var (
	// ErrNotConnected is returned when a call is attempted with no live
	// connection and reconnection fails.
	ErrNotConnected = errors.New("mcubus: not connected")
	// ErrSocketNotFound means the bridge is not running on this host —
	// callers should fall back to a simulator rather than treat it as a
	// read error.
	ErrSocketNotFound = errors.New("mcubus: bus socket not found")
)

const (
	msgTypeRequest  = 0
	msgTypeResponse = 1
)

// RPCError is returned when the remote bridge reports a method-level
// error (distinct from a transport failure).
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("mcubus: rpc error %d: %s", e.Code, e.Message)
}

// Client manages the connection to the bus bridge Unix socket. Calls are
// routed through a circuit breaker so a dead bridge is not redialed and
// re-timed-out on every single call; this is purely a transport-level
// protection and is independent of any detector's own tick-counted
// retry/confirm policy.
type Client struct {
	socketPath string
	mu         sync.Mutex
	conn       net.Conn
	log        zerolog.Logger
	msgID      uint32
	breaker    *gobreaker.CircuitBreaker
}

// NewClient dials (or schedules a lazy dial of) the bus bridge socket. It
// returns ErrSocketNotFound, not a fatal error, when nothing is listening —
// callers on hardware without the bridge should use a simulator instead.
func NewClient(socketPath string, log zerolog.Logger) (*Client, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, ErrSocketNotFound
	}

	c := &Client{
		socketPath: socketPath,
		log:        log.With().Str("component", "mcubus").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mcubus",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("bus:breaker-state-change")
		},
	})
	if err := c.connect(); err != nil {
		c.log.Warn().Err(err).Msg("bus:initial-connect-failed")
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.socketPath, WriteTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) nextMsgID() uint32 {
	c.msgID++
	return c.msgID
}

// Call invokes method with params and waits for the bridge's response. The
// connect/send/recv sequence runs behind the circuit breaker so a bridge
// that has gone dark trips the breaker instead of being redialed and
// timed out on every single pass.
func (c *Client) Call(method string, params ...interface{}) (interface{}, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callDirect(method, params...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) callDirect(method string, params ...interface{}) (interface{}, error) {
	c.mu.Lock()
	if err := c.connectLocked(); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	conn := c.conn
	id := c.nextMsgID()
	c.mu.Unlock()

	request := []interface{}{msgTypeRequest, id, method, params}
	if err := c.send(conn, request); err != nil {
		c.markDisconnected()
		return nil, fmt.Errorf("mcubus: send failed: %w", err)
	}

	resp, err := c.recv(conn)
	if err != nil {
		c.markDisconnected()
		return nil, fmt.Errorf("mcubus: recv failed: %w", err)
	}
	if len(resp) < 4 {
		return nil, fmt.Errorf("mcubus: malformed response")
	}
	if errField := resp[2]; errField != nil {
		if pair, ok := errField.([]interface{}); ok && len(pair) >= 2 {
			code, _ := toInt(pair[0])
			msg, _ := pair[1].(string)
			return nil, &RPCError{Code: code, Message: msg}
		}
		return nil, fmt.Errorf("mcubus: rpc error: %v", errField)
	}
	return resp[3], nil
}

func (c *Client) send(conn net.Conn, msg interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return msgpack.NewEncoder(conn).Encode(msg)
}

func (c *Client) recv(conn net.Conn) ([]interface{}, error) {
	conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	var resp []interface{}
	if err := msgpack.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
