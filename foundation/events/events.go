// Package events allows for the registering and receiving of events.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Event is a single notification produced by the node. The Source is the
// component that raised it, such as chain, mempool or worker.
type Event struct {
	Source  string    `json:"source"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Parse converts an event handler message of the form "source: message"
// into an event.
func Parse(msg string) Event {
	evt := Event{
		Source:  "node",
		Message: msg,
		Time:    time.Now().UTC(),
	}

	if source, rest, found := strings.Cut(msg, ": "); found && !strings.Contains(source, " ") {
		evt.Source = source
		evt.Message = rest
	}

	return evt
}

// Encode returns the JSON form of the event for the wire.
func (evt Event) Encode() []byte {
	data, err := json.Marshal(evt)
	if err != nil {
		return []byte(fmt.Sprintf(`{"source":"events","message":%q}`, err.Error()))
	}
	return data
}

// =============================================================================

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	m  map[string]chan Event
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]chan Event),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events) Acquire(id string) <-chan Event {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	// Since a message will be dropped if the websocket receiver is
	// not ready to receive, this arbitrary buffer should give the receiver
	// enough time to not lose a message. Websocket send could take long.
	const messageBuffer = 100

	evt.m[id] = make(chan Event, messageBuffer)
	return evt.m[id]
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Send signals an event to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(e Event) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- e:
		default:
		}
	}
}
