package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/observe"
	"github.com/scmem/scmem/pkg/scerr"
)

// DefaultReadTimeout mirrors the sctp server's SCTP_READ_TIMEOUT: a fixed
// per-read timeout.
const DefaultReadTimeout = 10 * time.Second

// Server adapts the wire protocol onto a single [memctx.Context].
type Server struct {
	ln          net.Listener
	ctx         *memctx.Context
	logger      *slog.Logger
	metrics     *observe.Metrics
	readTimeout time.Duration
}

// Option configures a [Server] at construction.
type Option func(*Server)

// WithLogger overrides the server's logger (default [slog.Default]).
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics overrides the server's [observe.Metrics] instance (default
// [observe.DefaultMetrics]).
func WithMetrics(m *observe.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithReadTimeout overrides the per-read timeout (default
// [DefaultReadTimeout]).
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// NewServer listens on addr and returns a [Server] ready to [Server.Serve].
func NewServer(addr string, ctx *memctx.Context, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, scerr.New(scerr.IO, "wire.NewServer", err)
	}
	s := &Server{
		ln:          ln,
		ctx:         ctx,
		logger:      slog.Default(),
		metrics:     observe.DefaultMetrics(),
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the server's bound listen address, useful when addr:0 was
// passed to [NewServer] to let the OS pick a port.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled or a SHUTDOWN command
// arrives on any connection.
func (s *Server) Serve(ctx context.Context) error {
	innerCtx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	go func() {
		<-innerCtx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-innerCtx.Done():
				return nil
			default:
				return scerr.New(scerr.IO, "wire.Serve", err)
			}
		}
		go s.handleConn(innerCtx, conn, shutdown)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, shutdown context.CancelFunc) {
	defer conn.Close()
	s.metrics.RecordConnectionOpened(ctx)
	defer s.metrics.RecordConnectionClosed(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.handleOne(ctx, conn, shutdown); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("wire: connection closed", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}
	}
}

// handleOne reads one request frame, dispatches it, and writes the response.
func (s *Server) handleOne(ctx context.Context, conn net.Conn, shutdown context.CancelFunc) error {
	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	hdr, err := ReadRequestHeader(conn)
	if err != nil {
		if isTimeout(err) {
			return errCmdHeaderReadTimeout
		}
		return err
	}

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	params := make([]byte, hdr.ParamSize)
	if _, err := io.ReadFull(conn, params); err != nil {
		if isTimeout(err) {
			return errCmdParamReadTimeout
		}
		return err
	}

	spanCtx, span := observe.StartSpan(ctx, "wire."+hdr.Cmd.String())
	start := time.Now()
	resp, body, err := s.dispatch(hdr, bytes.NewReader(params), shutdown)
	elapsed := time.Since(start).Seconds()
	span.End()

	resultName := "ok"
	if resp.Result != ResultOK {
		resultName = "fail"
	}
	if err != nil {
		var unk ErrUnknownCmd
		if errors.As(err, &unk) {
			resultName = "unknown_cmd"
		}
		observe.Logger(spanCtx).Warn("wire: command failed", "cmd", hdr.Cmd, "id", hdr.ID, "error", err)
	}
	s.metrics.RecordWireCommand(ctx, hdr.Cmd.String(), resultName, elapsed)

	if err := WriteResponseHeader(conn, resp); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := conn.Write(body); err != nil {
			return err
		}
	}
	s.metrics.RecordBytes(ctx, int64(requestHeaderSize+len(params)), int64(responseHeaderSize+len(body)))
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Distinct protocol errors the sctp protocol keeps separate from a
// generic failure: header/param read timeouts and unknown commands.
// They never reach the wire reply itself (the response header only has
// ok/fail), only the connection handler's log line.
var (
	errCmdHeaderReadTimeout = scerr.New(scerr.Timeout, "wire.handleOne", errors.New("cmd header read timeout"))
	errCmdParamReadTimeout  = scerr.New(scerr.Timeout, "wire.handleOne", errors.New("cmd param read timeout"))
)
