package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"tools.zach/dev/faultwatch/internal/paths"
)

// ErrNotConnected is returned when an operation requires an active connection.
var ErrNotConnected = errors.New("not connected")

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client talks to a running daemon's control endpoint.
type Client struct {
	dir paths.DataDir

	// mu protects conn from concurrent access.
	mu sync.Mutex
	// conn is the active control connection, or nil when disconnected.
	conn net.Conn
}

// NewClient creates a control client for the daemon rooted at dir.
func NewClient(dir paths.DataDir) *Client {
	return &Client{dir: dir}
}

// Connect establishes a connection to the daemon's control endpoint.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := dialControl(c.dir)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Close sends an OpClose frame and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	// Best-effort orderly close.
	if frame, err := EncodeFrame(OpClose, nil); err == nil {
		_, _ = c.conn.Write(frame)
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Do sends one request and waits for its response.
func (c *Client) Do(req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return Response{}, ErrNotConnected
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}
	frame, err := EncodeFrame(OpCommand, payload)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		return Response{}, fmt.Errorf("writing request: %w", err)
	}

	opcode, respData, err := DecodeFrame(c.conn)
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	if opcode != OpResult {
		return Response{}, fmt.Errorf("unexpected response opcode: %d", opcode)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return Response{}, fmt.Errorf("parsing response: %w", err)
	}
	return resp, nil
}

// ///////////////////////////////////////////////
// Convenience Commands
// ///////////////////////////////////////////////

// Status fetches the daemon's state.
func (c *Client) Status(lines int) (StatusInfo, error) {
	resp, err := c.Do(Request{Command: CmdStatus, Lines: lines})
	if err != nil {
		return StatusInfo{}, err
	}
	if !resp.OK || resp.Status == nil {
		return StatusInfo{}, fmt.Errorf("status failed: %s", resp.Message)
	}
	return *resp.Status, nil
}

// Dump captures a backtrace of the daemon.
func (c *Client) Dump(all bool) (string, error) {
	resp, err := c.Do(Request{Command: CmdDump, All: all})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("dump failed: %s", resp.Message)
	}
	return resp.Dump, nil
}

// Watchdog arms the daemon's watchdog timer.
func (c *Client) Watchdog(delaySeconds int, repeat, all bool) error {
	resp, err := c.Do(Request{Command: CmdWatchdog, DelaySeconds: delaySeconds, Repeat: repeat, All: all})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Message)
	}
	return nil
}

// Cancel disarms the daemon's watchdog timer.
func (c *Client) Cancel() error {
	resp, err := c.Do(Request{Command: CmdCancel})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Message)
	}
	return nil
}

// Raise asks the daemon to deliver the named fatal signal to itself.
func (c *Client) Raise(signal string) error {
	resp, err := c.Do(Request{Command: CmdRaise, Signal: signal})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Message)
	}
	return nil
}
