// Tests for the control server's dispatch and conversation handling. A
// fake [Service] records calls; conversations run over an in-memory pipe
// straight into handleConn, so no socket or named pipe is needed.
package control

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// Fake Service
// ///////////////////////////////////////////////

type fakeService struct {
	statusLines int
	dumpAll     bool
	scheduled   []int
	cancelled   int
	raised      []string
	dumpErr     error
	scheduleErr error
	raiseErr    error
}

func (f *fakeService) Status(lines int) StatusInfo {
	f.statusLines = lines
	return StatusInfo{PID: 4242, Version: "1.2.3", Enabled: true, LogTail: []string{"a", "b"}}
}

func (f *fakeService) Dump(all bool) (string, error) {
	f.dumpAll = all
	if f.dumpErr != nil {
		return "", f.dumpErr
	}
	return "goroutine 1 [running]:\nmain.main()\n", nil
}

func (f *fakeService) ScheduleWatchdog(delaySeconds int, repeat, all bool) error {
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.scheduled = append(f.scheduled, delaySeconds)
	return nil
}

func (f *fakeService) CancelWatchdog() { f.cancelled++ }

func (f *fakeService) Raise(signal string) error {
	if f.raiseErr != nil {
		return f.raiseErr
	}
	f.raised = append(f.raised, signal)
	return nil
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startConversation wires a client-side conn to a server goroutine and
// returns a roundtrip function.
func startConversation(t *testing.T, svc Service) func(Request) Response {
	t.Helper()

	client, server := net.Pipe()
	s := NewServer(svc, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConn(server)
	}()
	t.Cleanup(func() {
		client.Close()
		<-done
	})

	return func(req Request) Response {
		t.Helper()
		payload, err := json.Marshal(req)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		frame, err := EncodeFrame(OpCommand, payload)
		if err != nil {
			t.Fatalf("encode request: %v", err)
		}
		if _, err := client.Write(frame); err != nil {
			t.Fatalf("write request: %v", err)
		}

		opcode, respData, err := DecodeFrame(client)
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		if opcode != OpResult {
			t.Fatalf("response opcode = %d, want OpResult", opcode)
		}
		var resp Response
		if err := json.Unmarshal(respData, &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}
		return resp
	}
}

// ///////////////////////////////////////////////
// Dispatch
// ///////////////////////////////////////////////

func TestStatusCommand(t *testing.T) {
	svc := &fakeService{}
	do := startConversation(t, svc)

	resp := do(Request{Command: CmdStatus, Lines: 7})
	if !resp.OK {
		t.Fatalf("status failed: %s", resp.Message)
	}
	if resp.Status == nil {
		t.Fatal("status response missing payload")
	}
	if resp.Status.PID != 4242 || resp.Status.Version != "1.2.3" {
		t.Errorf("unexpected status: %+v", resp.Status)
	}
	if svc.statusLines != 7 {
		t.Errorf("lines = %d, want 7", svc.statusLines)
	}
}

func TestDumpCommand(t *testing.T) {
	svc := &fakeService{}
	do := startConversation(t, svc)

	resp := do(Request{Command: CmdDump, All: true})
	if !resp.OK {
		t.Fatalf("dump failed: %s", resp.Message)
	}
	if !strings.Contains(resp.Dump, "goroutine 1") {
		t.Errorf("dump payload missing backtrace: %q", resp.Dump)
	}
	if !svc.dumpAll {
		t.Error("all flag not forwarded")
	}
}

func TestWatchdogAndCancelCommands(t *testing.T) {
	svc := &fakeService{}
	do := startConversation(t, svc)

	resp := do(Request{Command: CmdWatchdog, DelaySeconds: 30, Repeat: true})
	if !resp.OK {
		t.Fatalf("watchdog failed: %s", resp.Message)
	}
	if len(svc.scheduled) != 1 || svc.scheduled[0] != 30 {
		t.Errorf("scheduled = %v, want [30]", svc.scheduled)
	}

	resp = do(Request{Command: CmdCancel})
	if !resp.OK {
		t.Fatalf("cancel failed: %s", resp.Message)
	}
	if svc.cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", svc.cancelled)
	}
}

func TestRaiseCommand(t *testing.T) {
	svc := &fakeService{}
	do := startConversation(t, svc)

	resp := do(Request{Command: CmdRaise, Signal: "segv"})
	if !resp.OK {
		t.Fatalf("raise failed: %s", resp.Message)
	}
	if len(svc.raised) != 1 || svc.raised[0] != "segv" {
		t.Errorf("raised = %v, want [segv]", svc.raised)
	}
}

func TestServiceErrorsSurfaceInResponse(t *testing.T) {
	svc := &fakeService{
		scheduleErr: errors.New("delay must be positive"),
		raiseErr:    errors.New("unknown fault name"),
	}
	do := startConversation(t, svc)

	resp := do(Request{Command: CmdWatchdog, DelaySeconds: 0})
	if resp.OK {
		t.Fatal("watchdog with service error should fail")
	}
	if !strings.Contains(resp.Message, "delay must be positive") {
		t.Errorf("message = %q", resp.Message)
	}

	resp = do(Request{Command: CmdRaise, Signal: "term"})
	if resp.OK || !strings.Contains(resp.Message, "unknown fault name") {
		t.Errorf("raise error not surfaced: %+v", resp)
	}
}

func TestUnknownCommand(t *testing.T) {
	do := startConversation(t, &fakeService{})

	resp := do(Request{Command: "reboot"})
	if resp.OK {
		t.Fatal("unknown command should fail")
	}
	if !strings.Contains(resp.Message, "unknown command") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestMultipleCommandsPerConnection(t *testing.T) {
	svc := &fakeService{}
	do := startConversation(t, svc)

	for i := 0; i < 3; i++ {
		if resp := do(Request{Command: CmdStatus}); !resp.OK {
			t.Fatalf("status failed: %s", resp.Message)
		}
	}
}

func TestCloseOpcodeEndsConversation(t *testing.T) {
	client, server := net.Pipe()
	s := NewServer(&fakeService{}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConn(server)
	}()

	frame, err := EncodeFrame(OpClose, nil)
	if err != nil {
		t.Fatalf("encode close: %v", err)
	}
	if _, err := client.Write(frame); err != nil {
		t.Fatalf("write close: %v", err)
	}
	<-done
	client.Close()
}
