package common

import (
	"os"
	"os/signal"
	"syscall"
)

// Interrupted delivers the signals that end a session: SIGINT, SIGTERM and SIGQUIT.
// The host stopping play is one of these; the session must still finalize.
func Interrupted() <-chan os.Signal {
	interrupt := make(chan os.Signal, 2)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	return interrupt
}
