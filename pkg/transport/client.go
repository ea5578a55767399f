package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jirenz/dist-scheduler/pkg/types"
)

// Client is the dial side of the transport: one persistent connection
// to a Server, used by a coordinator runner or worker agent to talk to
// the scheduler. Send and Recv are independent of each other so a
// caller can push a worker_available and, turns later and without any
// further Send, Recv a newtask that arrived unprompted.
type Client struct {
	conn  net.Conn
	inbox chan types.Envelope
	errs  chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to a Server at addr and starts its background reader.
// name, when non-empty, pins the connection's Identity on the Server
// side to name instead of the connection's ephemeral remote address,
// so a caller that redials (a worker agent restarting, for instance)
// is recognized as the same peer rather than a brand-new one. Pass ""
// for one-shot callers (the coordinator runner, the API bridge) that
// have no identity worth persisting across reconnects.
func Dial(addr string, name string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	if err := writeHandshake(conn, name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: handshake with %s: %w", addr, err)
	}
	c := &Client{
		conn:   conn,
		inbox:  make(chan types.Envelope, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	for {
		env, err := readEnvelope(c.conn)
		if err != nil {
			select {
			case c.errs <- err:
			default:
			}
			close(c.inbox)
			return
		}
		select {
		case c.inbox <- env:
		case <-c.closed:
			return
		}
	}
}

// Send writes env to the scheduler.
func (c *Client) Send(env types.Envelope) error {
	if err := writeEnvelope(c.conn, env); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Recv blocks for the next Envelope sent back to this connection, or
// returns ctx.Err() / the connection's read error, whichever fires
// first.
func (c *Client) Recv(ctx context.Context) (types.Envelope, error) {
	select {
	case env, ok := <-c.inbox:
		if !ok {
			select {
			case err := <-c.errs:
				return types.Envelope{}, err
			default:
				return types.Envelope{}, fmt.Errorf("transport: connection closed")
			}
		}
		return env, nil
	case <-ctx.Done():
		return types.Envelope{}, ctx.Err()
	}
}

// Close shuts down the connection and its reader.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
