package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// ///////////////////////////////////////////////
// Service
// ///////////////////////////////////////////////

// Service is the daemon-side surface the server dispatches commands
// against. The daemon core implements it over the fault handler and
// watchdog.
type Service interface {
	// Status reports the daemon's current state. lines limits the log
	// tail; zero means a default.
	Status(lines int) StatusInfo
	// Dump captures a backtrace of the daemon. all widens it to every
	// goroutine.
	Dump(all bool) (string, error)
	// ScheduleWatchdog arms the watchdog countdown.
	ScheduleWatchdog(delaySeconds int, repeat, all bool) error
	// CancelWatchdog disarms any pending countdown.
	CancelWatchdog()
	// Raise delivers the named fatal signal to the daemon. The delivery
	// is deferred long enough for the response to reach the client.
	Raise(signal string) error
}

// ///////////////////////////////////////////////
// Server
// ///////////////////////////////////////////////

// Server accepts control connections and dispatches framed commands
// against a [Service].
type Server struct {
	svc Service
	log *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup
}

// NewServer creates a control server around svc. Call [Server.Serve] to
// start accepting.
func NewServer(svc Service, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Serve accepts connections on l until [Server.Close]. Each connection is
// handled on its own goroutine. Serve returns nil after a clean Close.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accepting control connection: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting and waits for in-flight connections to finish.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.Close()
	}
	s.wg.Wait()
}

// handleConn serves one client conversation: a sequence of OpCommand
// frames, each answered with an OpResult frame, until OpClose or EOF.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		opcode, payload, err := DecodeFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.log.Warn("control read failed", "error", err)
			}
			return
		}

		switch opcode {
		case OpClose:
			return
		case OpCommand:
			// Fall through to dispatch.
		default:
			s.log.Warn("unexpected control opcode", "opcode", uint32(opcode))
			return
		}

		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeResponse(conn, Response{OK: false, Message: "malformed request: " + err.Error()})
			return
		}

		resp := s.dispatch(req)
		if !s.writeResponse(conn, resp) {
			return
		}
	}
}

// dispatch executes one command against the service.
func (s *Server) dispatch(req Request) Response {
	s.log.Debug("control command", "command", req.Command)

	switch req.Command {
	case CmdStatus:
		info := s.svc.Status(req.Lines)
		return Response{OK: true, Status: &info}

	case CmdDump:
		dump, err := s.svc.Dump(req.All)
		if err != nil {
			return Response{OK: false, Message: err.Error()}
		}
		return Response{OK: true, Dump: dump}

	case CmdWatchdog:
		if err := s.svc.ScheduleWatchdog(req.DelaySeconds, req.Repeat, req.All); err != nil {
			return Response{OK: false, Message: err.Error()}
		}
		return Response{OK: true, Message: fmt.Sprintf("watchdog armed: %ds", req.DelaySeconds)}

	case CmdCancel:
		s.svc.CancelWatchdog()
		return Response{OK: true, Message: "watchdog cancelled"}

	case CmdRaise:
		if err := s.svc.Raise(req.Signal); err != nil {
			return Response{OK: false, Message: err.Error()}
		}
		return Response{OK: true, Message: "raising " + req.Signal}

	default:
		return Response{OK: false, Message: fmt.Sprintf("%s: %q", ErrUnknownCommand, req.Command)}
	}
}

// writeResponse marshals and frames one response. Returns false when the
// connection should be abandoned.
func (s *Server) writeResponse(conn net.Conn, resp Response) bool {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Warn("control response marshal failed", "error", err)
		return false
	}
	frame, err := EncodeFrame(OpResult, payload)
	if err != nil {
		s.log.Warn("control response too large", "error", err)
		return false
	}
	if _, err := conn.Write(frame); err != nil {
		s.log.Warn("control write failed", "error", err)
		return false
	}
	return true
}
