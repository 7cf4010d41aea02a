package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_ABS = 0x03

	SYN_REPORT = 0

	ABS_X = 0x00
	ABS_Y = 0x01
	ABS_Z = 0x02
)

// Host defaults
const (
	defaultSocketPath     = "/tmp/tiltscroll.sock"
	defaultHTTPListen     = "127.0.0.1:8086"
	defaultWSPath         = "/ws"
	defaultMockIntervalMS = 100 // Mock orientation source poll interval (ms)

	// The estimator may ask for a 0 ms delay when tilted far; mobile hosts are
	// paced by the display, so the timer is never re-armed faster than this.
	defaultMinTickMS = 4

	defaultMQTTPoseTopic     = "tiltscroll/pose"
	defaultMQTTDecisionTopic = "tiltscroll/scroll"
	defaultMQTTClientID      = "tiltscrolld"
	mqttDisconnectQuiesceMS  = 250
	mqttConnectTimeoutMS     = 5000
)
