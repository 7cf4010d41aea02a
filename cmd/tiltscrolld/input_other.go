//go:build !linux

package main

import (
	"context"
	"errors"
	"os"
)

func readInputEventsEpoll(ctx context.Context, files []*os.File, handle func(dev int, ev inputEvent)) error {
	return errors.New("evdev accelerometers are only supported on linux")
}
