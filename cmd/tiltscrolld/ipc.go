package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Touch handlers, rotation watchers and tiltscroll-ctl talk to the daemon
// through this socket. One JSON object per line in each direction:
//
//   -> {"type":"set_tilt_scroll","data":{"enabled":true}}
//   <- {"status":"ok"}
//
//   -> {"type":"get_state"}
//   <- {"status":"ok","state":{...}}
//
// Failures answer {"status":"error","error":"..."} and keep the connection open.
// ============================================================================

// ipcQueryState asks for a StateSnapshot instead of sending an event.
const ipcQueryState = "get_state"

// IPCResponse is the reply to one request line.
type IPCResponse struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	State  *StateSnapshot `json:"state,omitempty"`
}

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// runIPCServer serves the Unix domain socket until ctx is canceled.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// A stale socket from a previous run would make Listen fail.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o666); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}
		go serveIPCConn(ctx, conn, events, logger)
	}
}

// serveIPCConn answers request lines until the client hangs up.
func serveIPCConn(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	// Unblock the scanner on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	enc := json.NewEncoder(conn)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		logger.Debug("IPC request", "line", string(line))

		resp := handleIPCLine(ctx, line, events)
		if err := enc.Encode(resp); err != nil {
			logger.Warn("IPC reply failed", "error", err, "status", resp.Status)
			return
		}
	}
}

// handleIPCLine turns one request line into a reply. Events are queued without
// blocking; a full queue is reported to the client.
func handleIPCLine(ctx context.Context, line []byte, events chan<- Event) IPCResponse {
	var env EventEnvelope
	if err := json.Unmarshal(line, &env); err == nil && env.Type == ipcQueryState {
		snap, err := requestSnapshot(ctx, events)
		if err != nil {
			return ipcError("get state: %v", err)
		}
		return IPCResponse{Status: "ok", State: &snap}
	}

	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError("parse event: %v", err)
	}

	select {
	case events <- ev:
		return ipcOK()
	default:
		return ipcError("event queue full")
	}
}

// SendIPCEvent sends one event to the daemon and checks the reply.
func SendIPCEvent(socketPath string, ev Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = roundTripIPC(socketPath, data)
	return err
}

// QueryIPCState fetches a StateSnapshot over the socket.
func QueryIPCState(socketPath string) (StateSnapshot, error) {
	resp, err := roundTripIPC(socketPath, []byte(`{"type":"`+ipcQueryState+`"}`))
	if err != nil {
		return StateSnapshot{}, err
	}
	if resp.State == nil {
		return StateSnapshot{}, errors.New("ipc reply carried no state")
	}
	return *resp.State, nil
}

func roundTripIPC(socketPath string, line []byte) (IPCResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp, nil
}
