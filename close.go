package tablespace

import "context"

// Close cancels outstanding work, stops the scheduling backend and releases
// every held lock. Stored tables stay readable through Get. Close is
// idempotent.
func (ws *Workspace) Close() error {
	if ws == nil || !ws.closed.CompareAndSwap(false, true) {
		return nil
	}

	ws.modeMu.Lock()
	defer ws.modeMu.Unlock()

	b := ws.current()
	n := b.CancelAll(context.Background())
	ws.logger.LogCancel(context.Background(), n)

	err := b.Close()
	ws.locks.ReleaseAll()
	return err
}
