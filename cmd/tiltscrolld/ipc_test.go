package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func startIPCServer(t *testing.T, events chan Event) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "tilt.sock")
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- runIPCServer(ctx, socketPath, events, testLogger())
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("ipc server: %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("timeout waiting for ipc server to stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, "ipc socket not created")
	return socketPath
}

func TestIPC_SendEvent(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startIPCServer(t, events)

	if err := SendIPCEvent(socketPath, SetRotation{Degrees: 90}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-events:
		if got, ok := ev.(SetRotation); !ok || got.Degrees != 90 {
			t.Fatalf("expected SetRotation{90}, got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestIPC_RejectsBadLines(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startIPCServer(t, events)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for _, line := range []string{
		`{"type":"tilt_faster"}`,
		`{"type":"attitude","data":{"values":[1]}}`,
		`{"type":"recalibrate"}`,
	} {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var resps []IPCResponse
	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		b, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read response %d: %v", i, err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(b, &resp); err != nil {
			t.Fatalf("decode response %d: %v", i, err)
		}
		resps = append(resps, resp)
	}

	if resps[0].Status != "error" || !strings.Contains(resps[0].Error, "unknown event type") {
		t.Fatalf("unexpected response for unknown type: %+v", resps[0])
	}
	if resps[1].Status != "error" {
		t.Fatalf("expected error for short attitude, got %+v", resps[1])
	}
	if resps[2].Status != "ok" {
		t.Fatalf("expected ok for recalibrate, got %+v", resps[2])
	}
	if len(events) != 1 {
		t.Fatalf("expected only the valid event queued, got %d", len(events))
	}
}

func TestIPC_QueueFull(t *testing.T) {
	// Unbuffered and never read: every send hits the full-queue path.
	events := make(chan Event)
	socketPath := startIPCServer(t, events)

	err := SendIPCEvent(socketPath, Recalibrate{})
	if err == nil || !strings.Contains(err.Error(), "event queue full") {
		t.Fatalf("expected queue full error, got %v", err)
	}
}

func TestIPC_QueryState(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startIPCServer(t, events)

	// Stand in for the daemon loop.
	go func() {
		for ev := range events {
			if req, ok := ev.(RequestStateSnapshot); ok {
				req.Reply <- StateSnapshot{Session: "abc", Offset: 5, Sources: []string{"ipc"}}
			}
		}
	}()
	t.Cleanup(func() { close(events) })

	snap, err := QueryIPCState(socketPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Session != "abc" || snap.Offset != 5 || len(snap.Sources) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
