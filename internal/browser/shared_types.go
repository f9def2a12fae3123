package browser

import (
	"context"
)

// sessionObserver is notified when a session closes so the owner can forget it.
type sessionObserver interface {
	unregisterSession(s *Session)
}

// CombineContext derives a context from sessionCtx (inheriting its values,
// including the chromedp target) that is also cancelled when opCtx is.
func CombineContext(sessionCtx context.Context, opCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(sessionCtx)

	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
