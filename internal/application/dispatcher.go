package application

import (
	"sync"

	"checkin/internal/domain/entities"
)

// Dispatcher notifies subscribers whenever the roster changes. Delivery is
// synchronous and unbuffered: subscribers only ever see the latest roster.
type Dispatcher struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(entities.Roster)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[int]func(entities.Roster))}
}

// Subscribe registers fn and returns the function that removes it.
func (d *Dispatcher) Subscribe(fn func(entities.Roster)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// Publish hands each subscriber its own copy of roster.
func (d *Dispatcher) Publish(roster entities.Roster) {
	d.mu.RLock()
	fns := make([]func(entities.Roster), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(roster.Clone())
	}
}
