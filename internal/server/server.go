// Package server is the connection manager: a single gnet event loop that
// accepts clients, frames newline-terminated commands out of each
// connection's inbound buffer and hands every command to the worker pool.
//
// Only the event loop reads from sockets and touches per-connection state.
// Workers send their reply with AsyncWrite, which queues the bytes back onto
// the loop. Writes are fire-and-forget: a failed write is logged and dropped.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/logging"
	"go.uber.org/zap"

	"github.com/VoolFI71/fast-kv/internal/handler"
	"github.com/VoolFI71/fast-kv/internal/stats"
	"github.com/VoolFI71/fast-kv/internal/workerpool"
)

var (
	// ErrStartup means the engine failed before it began serving (bind, listen, poller).
	ErrStartup = errors.New("server: startup failed")
	// ErrLoop means the event loop failed after it started serving.
	ErrLoop = errors.New("server: event loop failed")
	// ErrNotRunning is returned by Stop before the engine has booted.
	ErrNotRunning = errors.New("server: not running")
)

var _ logging.Logger = (*zap.SugaredLogger)(nil)

type Config struct {
	// Addr is a gnet protocol address such as tcp://0.0.0.0:8080.
	Addr      string
	ReuseAddr bool
}

type session struct {
	id  uint64
	key string
}

type Server struct {
	gnet.BuiltinEventEngine

	cfg     Config
	handler *handler.Handler
	pool    *workerpool.Pool
	stats   *stats.Stats
	log     *zap.Logger

	eng    gnet.Engine
	booted chan struct{}
	nextID atomic.Uint64
}

func New(cfg Config, h *handler.Handler, pool *workerpool.Pool, s *stats.Stats, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		handler: h,
		pool:    pool,
		stats:   s,
		log:     log,
		booted:  make(chan struct{}),
	}
}

// Serve runs the event loop and blocks until Stop is called or the loop fails.
// Errors wrap ErrStartup or ErrLoop.
func (s *Server) Serve() error {
	err := gnet.Run(s, s.cfg.Addr,
		gnet.WithMulticore(false),
		gnet.WithNumEventLoop(1),
		gnet.WithLockOSThread(true),
		gnet.WithReuseAddr(s.cfg.ReuseAddr),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithLogger(s.log.Named("gnet").Sugar()),
	)

	select {
	case <-s.booted:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLoop, err)
		}
		return nil
	default:
		if err == nil {
			err = errors.New("engine exited before boot")
		}
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}
}

// Ready is closed once the listener is up and the loop is running.
func (s *Server) Ready() <-chan struct{} {
	return s.booted
}

// Stop closes the listener and every client connection and makes Serve return.
func (s *Server) Stop(ctx context.Context) error {
	select {
	case <-s.booted:
	default:
		return ErrNotRunning
	}
	return s.eng.Stop(ctx)
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.eng = eng
	s.log.Info("start", zap.String("addr", s.cfg.Addr), zap.Int("workers", s.pool.Size()))
	close(s.booted)
	return gnet.None
}

func (s *Server) OnShutdown(gnet.Engine) {
	s.log.Info("event loop stopped")
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	id := s.nextID.Add(1)
	c.SetContext(&session{id: id, key: strconv.FormatUint(id, 10)})
	s.stats.ConnectionOpened()
	s.log.Info("connect", zap.Uint64("conn", id), zap.Stringer("remote", c.RemoteAddr()))
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.None
	}
	s.stats.ConnectionClosed()
	if err != nil && !errors.Is(err, io.EOF) {
		s.log.Info("read failed, disconnect", zap.Uint64("conn", sess.id), zap.Error(err))
	} else {
		s.log.Info("disconnect", zap.Uint64("conn", sess.id))
	}
	return gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	sess := c.Context().(*session)

	n := c.InboundBuffered()
	if n == 0 {
		return gnet.None
	}
	buf, err := c.Peek(n)
	if err != nil {
		return gnet.None
	}

	consumed := 0
	for {
		i := bytes.IndexByte(buf[consumed:], '\n')
		if i < 0 {
			break
		}
		line := buf[consumed : consumed+i]
		consumed += i + 1
		s.dispatch(c, sess, string(trimCR(line)))
	}

	// Anything after the last newline stays buffered until more bytes arrive.
	if consumed > 0 {
		_, _ = c.Discard(consumed)
	}
	return gnet.None
}

func (s *Server) dispatch(c gnet.Conn, sess *session, line string) {
	s.log.Info("cmd", zap.Uint64("conn", sess.id), zap.String("line", line))

	err := s.pool.SubmitKeyed(sess.key, func() {
		reply := s.handler.Handle(line)
		if err := c.AsyncWrite([]byte(reply), s.written); err != nil {
			s.log.Debug("reply dropped", zap.Uint64("conn", sess.id), zap.Error(err))
		}
	})
	if err != nil {
		s.log.Warn("command dropped", zap.Uint64("conn", sess.id), zap.Error(err))
	}
}

func (s *Server) written(_ gnet.Conn, err error) error {
	if err != nil {
		s.log.Debug("reply write failed", zap.Error(err))
	}
	return nil
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
