package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// scroll_watch prints the tiltscrolld websocket stream in a readable form.

type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type scrollData struct {
	PixelStep int  `json:"pixel_step"`
	Forward   bool `json:"forward"`
	DelayMS   int  `json:"delay_ms"`
	SpeedUp   int  `json:"speed_up"`
	Deviance  int  `json:"deviance"`
	Offset    int  `json:"offset"`
	Applied   bool `json:"applied"`
}

type tiltStateData struct {
	Enabled         bool `json:"enabled"`
	TiltToScroll    bool `json:"tilt_to_scroll"`
	SensorAvailable bool `json:"sensor_available"`
	Calibrated      bool `json:"calibrated"`
	Rotation        int  `json:"rotation"`
}

func main() {
	var (
		wsURL    = flag.String("ws", "ws://127.0.0.1:8086/ws", "tiltscrolld websocket URL")
		previews = flag.Bool("previews", false, "Also print scroll decisions that were not applied")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected! (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	// The daemon pings every 20s; answer keeps the deadline moving.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if line := formatMessage(message, *previews); line != "" {
				fmt.Println(line)
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// formatMessage renders one frame. It returns "" for frames that are filtered out.
func formatMessage(message []byte, previews bool) string {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Sprintf("[TEXT] %s", message)
	}

	switch env.Type {
	case "scroll":
		var s scrollData
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return fmt.Sprintf("[SCROLL] %s", env.Data)
		}
		if !s.Applied && !previews {
			return ""
		}
		dir := "fwd"
		if !s.Forward {
			dir = "back"
		}
		tag := "[SCROLL]"
		if !s.Applied {
			tag = "[PREVIEW]"
		}
		return fmt.Sprintf("%s offset=%d step=%d dir=%s delay=%dms speed_up=%d deviance=%d",
			tag, s.Offset, s.PixelStep, dir, s.DelayMS, s.SpeedUp, s.Deviance)

	case "tilt_state":
		var s tiltStateData
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return fmt.Sprintf("[TILT] %s", env.Data)
		}
		return fmt.Sprintf("[TILT] enabled=%t pref=%t sensor=%t calibrated=%t rotation=%d",
			s.Enabled, s.TiltToScroll, s.SensorAvailable, s.Calibrated, s.Rotation)

	case "state_init":
		var pretty map[string]any
		if err := json.Unmarshal(env.Data, &pretty); err != nil {
			return fmt.Sprintf("[INIT] %s", env.Data)
		}
		b, _ := json.MarshalIndent(pretty, "", "  ")
		return fmt.Sprintf("[INIT]\n%s", b)

	default:
		return fmt.Sprintf("[%s] %s", env.Type, env.Data)
	}
}
