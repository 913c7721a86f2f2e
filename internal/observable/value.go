// Package observable publishes the latest value of something to any number
// of subscribers. Publication is last-write-wins: a slow subscriber skips
// intermediate values and only ever sees the newest one.
package observable

import "sync"

type Value[T any] struct {
	mu     sync.Mutex
	latest T
	set    bool
	subs   map[int]chan T
	nextID int
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[int]chan T)}
}

// Publish replaces the latest value and offers it to every subscriber.
func (v *Value[T]) Publish(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.latest = x
	v.set = true
	for _, ch := range v.subs {
		offer(ch, x)
	}
}

// Latest returns the most recently published value and whether one exists.
func (v *Value[T]) Latest() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.set
}

// Subscribe returns a channel that receives published values and a cancel
// func that closes it. The current value, if any, is delivered first.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan T, 1)
	if v.set {
		ch <- v.latest
	}

	id := v.nextID
	v.nextID++
	v.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// offer drops a stale buffered value before sending. Callers hold v.mu, so
// the channel has no other writer.
func offer[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}
