package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// tiltscroll-ctl - Command-line IPC Client
// ============================================================================
// Sends events to the tiltscrolld daemon over its Unix socket.
//
// Usage:
//   tiltscroll-ctl enable
//   tiltscroll-ctl disable
//   tiltscroll-ctl recalibrate
//   tiltscroll-ctl rotate 90
//   tiltscroll-ctl pref off
//   tiltscroll-ctl attitude 0 -38 0 [rotation]
//   tiltscroll-ctl reset-offset
//   tiltscroll-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/tiltscroll.sock)
// ============================================================================

// eventEnvelope mirrors the daemon's wire format.
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type setTiltScroll struct {
	Enabled bool `json:"enabled"`
}

type setRotation struct {
	Degrees int `json:"degrees"`
}

type setPreference struct {
	TiltToScroll bool `json:"tilt_to_scroll"`
}

type injectAttitude struct {
	Values   []float64 `json:"values"`
	Rotation *int      `json:"rotation,omitempty"`
}

// ipcResponse is the daemon's reply. State is only set for get_state.
type ipcResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	State  json.RawMessage `json:"state,omitempty"`
}

func main() {
	socketPath := "/tmp/tiltscroll.sock"

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fatalf("-socket requires an argument")
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	env, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}
	if env == nil {
		printUsage()
		return
	}

	resp, err := send(socketPath, *env)
	if err != nil {
		fatalf("%v", err)
	}
	if len(resp.State) == 0 {
		fmt.Println("ok")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.State, "", "  "); err != nil {
		fatalf("format state: %v", err)
	}
	fmt.Println(pretty.String())
}

// parseCommand maps command-line arguments to an event envelope.
// It returns nil for help.
func parseCommand(args []string) (*eventEnvelope, error) {
	switch args[0] {
	case "enable", "on":
		return &eventEnvelope{Type: "set_tilt_scroll", Data: setTiltScroll{Enabled: true}}, nil

	case "disable", "off":
		return &eventEnvelope{Type: "set_tilt_scroll", Data: setTiltScroll{Enabled: false}}, nil

	case "recalibrate", "touch":
		return &eventEnvelope{Type: "recalibrate"}, nil

	case "rotate", "rotation":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s requires degrees (0, 90, 180, 270)", args[0])
		}
		deg, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid rotation: %w", err)
		}
		return &eventEnvelope{Type: "set_rotation", Data: setRotation{Degrees: deg}}, nil

	case "pref", "preference":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s requires on or off", args[0])
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return nil, err
		}
		return &eventEnvelope{Type: "set_preference", Data: setPreference{TiltToScroll: on}}, nil

	case "attitude":
		if len(args) < 4 {
			return nil, fmt.Errorf("attitude requires azimuth, pitch and roll")
		}
		a := injectAttitude{Values: make([]float64, 3)}
		for i := range 3 {
			v, err := strconv.ParseFloat(args[1+i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid angle %q: %w", args[1+i], err)
			}
			a.Values[i] = v
		}
		if len(args) > 4 {
			deg, err := strconv.Atoi(args[4])
			if err != nil {
				return nil, fmt.Errorf("invalid rotation: %w", err)
			}
			a.Rotation = &deg
		}
		return &eventEnvelope{Type: "attitude", Data: a}, nil

	case "status", "state":
		return &eventEnvelope{Type: "get_state"}, nil

	case "reset-offset", "reset":
		return &eventEnvelope{Type: "reset_offset"}, nil

	case "help", "-h", "--help":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func send(socketPath string, env eventEnvelope) (ipcResponse, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(env)
	if err != nil {
		return ipcResponse{}, fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return ipcResponse{}, fmt.Errorf("send event: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return ipcResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status == "error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `tiltscroll-ctl - Control the tiltscrolld daemon via IPC

Usage:
  tiltscroll-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/tiltscroll.sock)

Commands:
  enable, on                        Start tilt scrolling
  disable, off                      Stop tilt scrolling
  recalibrate, touch                Take the next reading as the neutral pitch
  rotate <deg>                      Set display rotation (0, 90, 180, 270)
  pref on|off                       Set the tilt-to-scroll preference
  attitude <az> <pitch> <roll> [r]  Inject an orientation reading
  reset-offset, reset               Zero the accumulated scroll offset
  status, state                     Print the daemon state snapshot
  help, -h, --help                  Show this help message

Examples:
  tiltscroll-ctl enable
  tiltscroll-ctl attitude 0 -45 0
  tiltscroll-ctl -socket /run/tiltscroll.sock rotate 90
`)
}
