package main

import (
	"sync"
)

// Broker fans published messages out to every subscriber.
type Broker[T any] struct {
	mu      sync.RWMutex
	clients map[chan T]struct{}
	buffer  int
}

func NewBroker[T any](buffer int) *Broker[T] {
	return &Broker[T]{clients: make(map[chan T]struct{}), buffer: buffer}
}

func (b *Broker[T]) Subscribe() (ch chan T, unsubscribe func()) {
	ch = make(chan T, b.buffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish never blocks: a subscriber whose buffer is full misses msg.
func (b *Broker[T]) Publish(msg T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}
