package auth

import "context"

type subscriber struct {
	ch chan State
}

// offer replaces any undelivered state with st. Callers hold Service.mu.
func (sub *subscriber) offer(st State) {
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- st:
	default:
	}
}

// Subscribe delivers the current state, then every change. A slow reader
// only sees the newest state. The channel closes when ctx is done.
func (s *Service) Subscribe(ctx context.Context) <-chan State {
	sub := &subscriber{ch: make(chan State, 1)}

	s.mu.Lock()
	sub.offer(s.state)
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, sub)
		close(sub.ch)
		s.mu.Unlock()
	}()
	return sub.ch
}
