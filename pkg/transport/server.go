package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jirenz/dist-scheduler/pkg/types"
)

// handshakeTimeout bounds how long handshakeAndServe waits for a newly
// connected peer to send its name frame before giving up on it.
const handshakeTimeout = 5 * time.Second

// Identity names one peer connection to a Server, used to route a
// later reply back to it with no further handshake — the TCP analogue
// of a ROUTER socket's frame identity. It is either the name a Client
// pinned via Dial's name option, or, absent one, the remote address
// the peer dialed in from.
type Identity string

// Inbound is one message arriving on a Server, tagged with the
// identity it is safe to Send a reply to.
type Inbound struct {
	From Identity
	Env  types.Envelope
}

// Server accepts connections from many peers and multiplexes every
// message they send into a single inbox, while keeping each peer's
// connection open so a reply can be sent back at any later turn.
type Server struct {
	log zerolog.Logger

	listener net.Listener
	inbox    chan Inbound

	mu    sync.Mutex
	conns map[Identity]net.Conn

	closed chan struct{}
	wg     sync.WaitGroup
}

// Listen starts a Server accepting on addr (e.g. ":7711").
func Listen(addr string, log zerolog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %s: %w", addr, err)
	}
	s := &Server{
		log:      log.With().Str("listen_addr", addr).Logger(),
		listener: lis,
		inbox:    make(chan Inbound, 256),
		conns:    make(map[Identity]net.Conn),
		closed:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listen address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				s.log.Error().Err(err).Msg("transport: accept failed")
				return
			}
		}
		connID := uuid.New().String()
		s.wg.Add(1)
		go s.handshakeAndServe(conn, connID)
	}
}

// handshakeAndServe reads the name frame a Client writes right after
// connecting, pins the connection's Identity to it when non-empty
// (falling back to the remote address otherwise), then runs the
// normal read loop. Accept itself never blocks on a slow or silent
// peer: the handshake read has its own deadline.
func (s *Server) handshakeAndServe(conn net.Conn, connID string) {
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	name, err := readHandshake(conn)
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		s.log.Debug().Str("conn_id", connID).Err(err).Msg("transport: handshake failed")
		conn.Close()
		s.wg.Done()
		return
	}

	id := Identity(name)
	if id == "" {
		id = Identity(conn.RemoteAddr().String())
	}

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	s.log.Debug().Str("peer", string(id)).Str("conn_id", connID).Msg("transport: accepted connection")

	s.readLoop(id, connID, conn)
}

func (s *Server) readLoop(id Identity, connID string, conn net.Conn) {
	defer s.wg.Done()
	defer s.forget(id, conn)
	for {
		env, err := readEnvelope(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug().Str("peer", string(id)).Str("conn_id", connID).Err(err).Msg("transport: connection closed")
			}
			return
		}
		select {
		case s.inbox <- Inbound{From: id, Env: env}:
		case <-s.closed:
			return
		}
	}
}

func (s *Server) forget(id Identity, conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	if s.conns[id] == conn {
		delete(s.conns, id)
	}
	s.mu.Unlock()
}

// Recv returns the inbox channel for use in a select alongside other
// event sources (timers, other servers). The scheduler's event loop
// reads from it directly rather than through a blocking call, so it
// can drain every server it owns in one turn.
func (s *Server) Recv() <-chan Inbound {
	return s.inbox
}

// Send writes env to the connection registered under identity. It
// returns an error if the peer has since disconnected; the caller
// decides whether that is itself a protocol violation (the scheduler
// never intentionally sends to a peer it believes is gone — a Send
// failure here means the peer vanished between the last message it
// sent and now, which the caller treats as a disconnect, not a bug).
func (s *Server) Send(identity Identity, env types.Envelope) error {
	s.mu.Lock()
	conn, ok := s.conns[identity]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown peer %s", identity)
	}
	if err := writeEnvelope(conn, env); err != nil {
		return fmt.Errorf("transport: send to %s: %w", identity, err)
	}
	return nil
}

// Connected reports whether identity currently has an open connection.
func (s *Server) Connected(identity Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[identity]
	return ok
}

// Close stops accepting new connections and closes every open peer
// connection. Pending inbox messages are discarded.
func (s *Server) Close() error {
	close(s.closed)
	err := s.listener.Close()

	s.mu.Lock()
	for id, conn := range s.conns {
		conn.Close()
		delete(s.conns, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
