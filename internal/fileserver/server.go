// Package fileserver serves a single local file over loopback HTTP with
// byte-range support, so embedded players can seek through large videos
// without loading them into memory.
//
// Only a minimal surface is implemented: one request per connection, only the
// method and Range header are read, and the request path is ignored.
package fileserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/dlcut/internal/apperr"
)

const (
	// DefaultChunkSize is the streaming write size.
	DefaultChunkSize = 64 * 1024
	// DefaultReadBufferSize bounds how much of the request is read.
	DefaultReadBufferSize = 4096

	requestReadTimeout = 10 * time.Second
	acceptRetryDelay   = 10 * time.Millisecond
	servedPath         = "/video"
)

// Server serves one file until stopped.
type Server struct {
	path     string
	listener net.Listener
	logger   *slog.Logger

	chunkSize      int
	readBufferSize int

	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChunkSize sets the size of each body write.
func WithChunkSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithReadBufferSize sets how many request bytes are read before responding.
func WithReadBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.readBufferSize = n
		}
	}
}

// Start binds an ephemeral loopback port and serves path in the background.
// The file does not need to exist yet; requests get 404 until it does.
func Start(path string, opts ...Option) (*Server, error) {
	s := &Server{
		path:           path,
		logger:         slog.Default(),
		chunkSize:      DefaultChunkSize,
		readBufferSize: DefaultReadBufferSize,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "fileserver")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIO, "Failed to start preview server", err)
	}
	s.listener = ln

	s.logger.Debug("preview server started", slog.String("addr", ln.Addr().String()), slog.String("path", path))

	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// URL returns the address clients should request.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + servedPath
}

// Path returns the file being served.
func (s *Server) Path() string {
	return s.path
}

// Stop closes the listener. Connections already accepted run to completion.
// Calling Stop more than once is safe.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Debug("closing listener", slog.String("error", err.Error()))
		}
		s.logger.Debug("preview server stopped", slog.String("addr", s.listener.Addr().String()))
	})
}

// Done is closed once the accept loop has exited.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) acceptLoop() {
	defer close(s.done)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Debug("accept failed", slog.String("error", err.Error()))
			time.Sleep(acceptRetryDelay)
			continue
		}
		go s.handle(conn)
	}
}

// handle serves one request. Every failure just closes the connection.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	buf := make([]byte, s.readBufferSize)
	n, _ := conn.Read(buf)
	if n == 0 {
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	req := parseRequest(strings.ToValidUTF8(string(buf[:n]), "\uFFFD"))

	info, err := os.Stat(s.path)
	if err != nil || info.IsDir() {
		_, _ = io.WriteString(conn, "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
		return
	}
	size := info.Size()

	window := byteRange{start: 0, end: size - 1}
	partial := false
	if req.hasRange {
		if r, ok := parseRange(req.rangeHeader, size); ok {
			window = r
			partial = true
		}
	}
	length := window.length()

	var hdr strings.Builder
	if partial {
		hdr.WriteString("HTTP/1.1 206 Partial Content\r\n")
		fmt.Fprintf(&hdr, "Content-Range: bytes %d-%d/%d\r\n", window.start, window.end, size)
	} else {
		hdr.WriteString("HTTP/1.1 200 OK\r\n")
	}
	hdr.WriteString("Content-Type: " + ContentType(s.path) + "\r\n")
	hdr.WriteString("Content-Length: " + strconv.FormatInt(length, 10) + "\r\n")
	hdr.WriteString("Accept-Ranges: bytes\r\n")
	hdr.WriteString("Connection: close\r\n\r\n")

	if _, err := io.WriteString(conn, hdr.String()); err != nil {
		return
	}
	if req.method == "HEAD" || length == 0 {
		return
	}

	f, err := os.Open(s.path)
	if err != nil {
		return
	}
	defer f.Close()

	if window.start > 0 {
		if _, err := f.Seek(window.start, io.SeekStart); err != nil {
			return
		}
	}

	s.stream(conn, f, length)
}

// stream copies length bytes from f to w in chunkSize writes.
func (s *Server) stream(w io.Writer, f io.Reader, length int64) {
	chunk := make([]byte, s.chunkSize)
	remaining := length
	for remaining > 0 {
		want := min(int64(len(chunk)), remaining)
		n, err := f.Read(chunk[:want])
		if n > 0 {
			if _, werr := w.Write(chunk[:n]); werr != nil {
				return
			}
			remaining -= int64(n)
		}
		if err != nil {
			return
		}
	}
}
