package snapshot

import "sync"

var (
	subMu sync.Mutex
	subs  = make(map[chan string]struct{})
)

// Subscribe registers a listener for snapshot updates and returns the
// channel (carrying new ETags) and an unsubscribe func.
func Subscribe() (chan string, func()) {
	ch := make(chan string, 1)
	subMu.Lock()
	subs[ch] = struct{}{}
	subMu.Unlock()

	unsub := func() {
		subMu.Lock()
		delete(subs, ch)
		close(ch)
		subMu.Unlock()
	}
	return ch, unsub
}

// publishUpdate notifies all listeners without blocking on slow ones.
func publishUpdate(etag string) {
	subMu.Lock()
	for ch := range subs {
		select {
		case ch <- etag:
		default: // slow listener, skip this update
		}
	}
	subMu.Unlock()
}
