package main

import (
	"context"
	"os"
	"strconv"

	"reburn/internal/logging"
)

// watchShutdownSignals turns interrupts into cancellation. The first signal
// calls stop so the command gets its grace period, the second calls kill.
// Later signals are dropped.
func watchShutdownSignals(logger *logging.Logger, stop, kill context.CancelFunc, signalCh <-chan os.Signal) func() {
	if signalCh == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		received := 0
		for {
			var sig os.Signal
			select {
			case <-done:
				return
			case next, ok := <-signalCh:
				if !ok {
					return
				}
				sig = next
			}

			received++
			fields := map[string]string{"count": strconv.Itoa(received)}
			if sig != nil {
				fields["signal"] = sig.String()
			}
			switch received {
			case 1:
				callCancel(stop)
				logger.Info("stopping", fields)
			case 2:
				callCancel(kill)
				logger.Warn("stopping immediately", fields)
			default:
				logger.Debug("signal ignored", fields)
			}
		}
	}()

	return func() {
		close(done)
	}
}

func callCancel(cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
}
