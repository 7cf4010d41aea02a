package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tiltscroll/internal/orientation"
	"tiltscroll/internal/tilt"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("tiltscrolld v%s\n", version)
	fmt.Println("Tilt-to-scroll daemon: turns device attitude into scroll steps")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  tiltscrolld [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads orientation from evdev accelerometers, an MQTT pose topic or a mock")
	fmt.Println("  source, calibrates a neutral reading pitch and emits one-pixel scroll steps")
	fmt.Println("  whose rate follows the tilt. Decisions are served over a state websocket")
	fmt.Println("  and optionally published to MQTT. Control events arrive over a Unix socket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file; flags override file values")
	fmt.Println()
	fmt.Println("  -dead-zone-deg int")
	fmt.Printf("        Deviance from the neutral pitch that never scrolls (default %d)\n", tilt.DefaultDeadZoneDeg)
	fmt.Println()
	fmt.Println("  -forward-tolerance-deg int")
	fmt.Printf("        Extra forward tilt before scrolling speeds up (default %d)\n", tilt.DefaultForwardToleranceDeg)
	fmt.Println()
	fmt.Println("  -base-interval-ms int")
	fmt.Printf("        Delay between scroll steps at normal speed (default %d)\n", tilt.DefaultBaseIntervalMS)
	fmt.Println()
	fmt.Println("  -speed-up-step-ms int")
	fmt.Printf("        Delay removed per degree of speed-up (default %d)\n", tilt.DefaultSpeedUpStepMS)
	fmt.Println()
	fmt.Println("  -idle-interval-ms int")
	fmt.Printf("        Poll delay while not scrolling (default %d)\n", tilt.DefaultIdleIntervalMS)
	fmt.Println()
	fmt.Println("  -min-tick-ms int")
	fmt.Printf("        Scroll timer floor (default %d)\n", defaultMinTickMS)
	fmt.Println()
	fmt.Println("  -tilt-to-scroll")
	fmt.Println("        Initial user preference (default true)")
	fmt.Println()
	fmt.Println("  -enable")
	fmt.Println("        Start tilt scrolling as soon as a sensor is available")
	fmt.Println()
	fmt.Println("  -rotation int")
	fmt.Println("        Initial display rotation in degrees: 0, 90, 180, 270 (default 0)")
	fmt.Println()
	fmt.Println("  -mock")
	fmt.Println("        Use the synthetic orientation source")
	fmt.Println()
	fmt.Println("  -devices string")
	fmt.Println("        Comma separated evdev accelerometer devices")
	fmt.Println()
	fmt.Println("  -ipc-sensor")
	fmt.Println("        Treat attitude events on the IPC socket as an orientation sensor")
	fmt.Println()
	fmt.Println("  -mqtt")
	fmt.Println("        Enable the MQTT pose source and decision publisher")
	fmt.Println()
	fmt.Println("  -mqtt-broker string")
	fmt.Println("        MQTT broker URL (default \"tcp://localhost:1883\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Printf("        State websocket listen address, empty disables (default %q)\n", defaultHTTPListen)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: text, json (default \"text\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Try it out without hardware")
	fmt.Println("  tiltscrolld -mock -enable -log-level debug")
	fmt.Println()
	fmt.Println("  # Tablet accelerometer, landscape")
	fmt.Println("  tiltscrolld -devices /dev/input/event3 -rotation 90")
	fmt.Println()
	fmt.Println("  # Poses from an IMU publishing to MQTT")
	fmt.Println("  tiltscrolld -mqtt -mqtt-broker tcp://imu.local:1883")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - The first tick after enabling (or after 'tiltscroll-ctl touch') takes the")
	fmt.Println("    current pitch as the neutral reading position")
	fmt.Println("  - Reading evdev devices requires root or membership of the 'input' group")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath = flag.String("config", "", "YAML config file")

		deadZoneDeg         = flag.Int("dead-zone-deg", tilt.DefaultDeadZoneDeg, "Deviance from the neutral pitch that never scrolls")
		forwardToleranceDeg = flag.Int("forward-tolerance-deg", tilt.DefaultForwardToleranceDeg, "Extra forward tilt before scrolling speeds up")
		baseIntervalMS      = flag.Int("base-interval-ms", tilt.DefaultBaseIntervalMS, "Delay between scroll steps at normal speed")
		speedUpStepMS       = flag.Int("speed-up-step-ms", tilt.DefaultSpeedUpStepMS, "Delay removed per degree of speed-up")
		idleIntervalMS      = flag.Int("idle-interval-ms", tilt.DefaultIdleIntervalMS, "Poll delay while not scrolling")
		minTickMS           = flag.Int("min-tick-ms", defaultMinTickMS, "Scroll timer floor")
		tiltToScroll        = flag.Bool("tilt-to-scroll", true, "Initial user preference")
		enableOnStart       = flag.Bool("enable", false, "Start tilt scrolling as soon as a sensor is available")
		rotation            = flag.Int("rotation", 0, "Initial display rotation in degrees")

		mock      = flag.Bool("mock", false, "Use the synthetic orientation source")
		devices   = flag.String("devices", "", "Comma separated evdev accelerometer devices")
		ipcSensor = flag.Bool("ipc-sensor", false, "Treat IPC attitude events as an orientation sensor")

		mqttEnabled = flag.Bool("mqtt", false, "Enable the MQTT pose source and decision publisher")
		mqttBroker  = flag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")

		ipcSocketPath = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for IPC")
		httpListen    = flag.String("http-listen", defaultHTTPListen, "State websocket listen address (empty disables)")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFormat     = flag.String("log-format", logFormatText, "Log format: text, json")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	pick := func(name string) bool { return set[name] }

	var o FlagOverrides
	if pick("dead-zone-deg") {
		o.DeadZoneDeg = deadZoneDeg
	}
	if pick("forward-tolerance-deg") {
		o.ForwardToleranceDeg = forwardToleranceDeg
	}
	if pick("base-interval-ms") {
		o.BaseIntervalMS = baseIntervalMS
	}
	if pick("speed-up-step-ms") {
		o.SpeedUpStepMS = speedUpStepMS
	}
	if pick("idle-interval-ms") {
		o.IdleIntervalMS = idleIntervalMS
	}
	if pick("min-tick-ms") {
		o.MinTickMS = minTickMS
	}
	if pick("tilt-to-scroll") {
		o.TiltToScroll = tiltToScroll
	}
	if pick("enable") {
		o.EnableOnStart = enableOnStart
	}
	if pick("rotation") {
		o.Rotation = rotation
	}
	if pick("mock") {
		o.Mock = mock
	}
	if pick("devices") {
		o.Devices = devices
	}
	if pick("ipc-sensor") {
		o.IPCSensor = ipcSensor
	}
	if pick("mqtt") {
		o.MQTTEnabled = mqttEnabled
	}
	if pick("mqtt-broker") {
		o.MQTTBroker = mqttBroker
	}
	if pick("ipc-socket") {
		o.IPCSocketPath = ipcSocketPath
	}
	if pick("http-listen") {
		o.HTTPListen = httpListen
	}
	if pick("log-level") {
		o.LogLevel = logLevelStr
	}
	if pick("log-format") {
		o.LogFormat = logFormat
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(os.Stderr, logLevel, cfg.Logging.Format)

	if err := run(cfg, logger); err != nil {
		logger.Error("tiltscrolld stopped", "error", err)
		os.Exit(1)
	}
}

// run wires sources, the daemon loop, IPC and HTTP, and blocks until a signal
// arrives or one of them fails.
func run(cfg Config, logger *slog.Logger) error {
	session := uuid.NewString()
	logger = logger.With("session", session[:8])
	logger.Debug("starting tiltscrolld", "version", version, "session", session)

	pref := NewPreference(cfg.Scroll.TiltToScroll)
	est := tilt.New(cfg.ToEstimatorConfig(), pref)

	rotation, err := tilt.ParseRotation(cfg.Scroll.Rotation)
	if err != nil {
		return err
	}
	feed := NewSensorFeed(est, rotation, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Central event bus.
	events := make(chan Event, 64)

	// ------------------------------------------------------------------
	// Orientation sources
	// ------------------------------------------------------------------
	if !cfg.HasSources() {
		logger.Warn("no orientation source configured; tilt scrolling cannot be enabled")
	}

	var sources []string

	if cfg.Sensors.Mock {
		sources = append(sources, "mock")
		interval := time.Duration(cfg.Sensors.MockIntervalMS) * time.Millisecond
		g.Go(func() error {
			return runPoseSource(gctx, "mock", orientation.NewMockSource(), interval, feed, logger)
		})
	}

	if len(cfg.Sensors.Devices) > 0 {
		if files := openAccelDevices(cfg.Sensors.Devices, logger); len(files) > 0 {
			sources = append(sources, "evdev")
			g.Go(func() error {
				// A failing device stops this source only.
				if err := runAccelDevices(gctx, files, feed, logger); err != nil {
					logger.Error("accelerometer reader stopped", "error", err)
				}
				return nil
			})
		}
	}

	if cfg.Sensors.IPC {
		sources = append(sources, "ipc")
	}

	var publisher DecisionPublisher
	if cfg.MQTT.Enabled {
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = defaultMQTTClientID + "-" + session[:8]
		}
		bridge := newMQTTBridge(cfg.MQTT, feed, logger)
		if err := bridge.Connect(clientID); err != nil {
			logger.Error("mqtt unavailable", "error", err)
		} else {
			if cfg.MQTT.PoseTopic != "" {
				sources = append(sources, "mqtt")
			}
			if cfg.MQTT.DecisionTopic != "" {
				publisher = bridge
			}
			g.Go(func() error { return bridge.Run(gctx) })
		}
	}

	// The capability answer is final; deliver it before any enable request.
	events <- SensorsReported{Present: len(sources) > 0, Sources: sources}
	if cfg.Scroll.EnableOnStart {
		events <- SetTiltScroll{Enabled: true}
	}

	// ------------------------------------------------------------------
	// State websocket
	// ------------------------------------------------------------------
	var broadcasts chan StateBroadcast
	if cfg.HTTP.Listen != "" {
		broadcasts = make(chan StateBroadcast, 256)
		server := NewServer(logger, events, ServerConfig{})
		handler := server.Routes(cfg.HTTP.WSPath)

		g.Go(func() error {
			server.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, server.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Listen, handler, logger)
		})
	}

	// ------------------------------------------------------------------
	// Daemon loop + IPC
	// ------------------------------------------------------------------
	state := &DaemonState{Rotation: rotation}
	deps := effectDeps{feed: feed, publisher: publisher, session: session}

	g.Go(func() error {
		runDaemon(gctx, events, Controls{Est: est, Pref: pref}, deps, state, broadcasts, cfg.MinTick(), logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Listen,
		"sources", sources,
		"rotation", rotation.String(),
		"tilt_to_scroll", cfg.Scroll.TiltToScroll)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
