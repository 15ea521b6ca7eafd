package retrodfrg

import (
	"time"
)

// WaitWithStop keeps the final screen up for d, or until a stop key is pressed.
func WaitWithStop(u *UI, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-u.stopChan:
		return ErrInterrupted
	case <-timer.C:
		return nil
	}
}
