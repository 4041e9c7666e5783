package engine

import (
	"encoding/json"
	"sync"
)

// EventHandler receives one engine event. Handlers are invoked
// synchronously from the transport's read loop, so delivery order
// matches arrival order. A handler must not issue a blocking engine
// call; doing so would stall the loop the reply arrives on.
type EventHandler func(name string, data json.RawMessage)

// StatusHandler receives connectivity changes from the supervisor.
type StatusHandler func(status Status)

// broadcaster fans engine events out to every subscriber, plus one
// external callback slot where the last registration wins.
type broadcaster struct {
	mu       sync.Mutex
	subs     map[int]EventHandler
	nextSub  int
	callback EventHandler
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[int]EventHandler),
	}
}

// Subscribe registers a handler for every future event. The returned
// function removes the subscription.
func (b *broadcaster) Subscribe(h EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	b.subs[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// SetCallback installs the single external event callback,
// replacing any previous one.
func (b *broadcaster) SetCallback(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.callback = h
}

func (b *broadcaster) publish(name string, data json.RawMessage) {
	b.mu.Lock()
	handlers := make([]EventHandler, 0, len(b.subs)+1)
	for i := 0; i < b.nextSub; i++ {
		if h, ok := b.subs[i]; ok {
			handlers = append(handlers, h)
		}
	}
	if b.callback != nil {
		handlers = append(handlers, b.callback)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(name, data)
	}
}
