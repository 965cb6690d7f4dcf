package main

import (
	"testing"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker[int](2)
	one, unsubscribeOne := b.Subscribe()
	two, unsubscribeTwo := b.Subscribe()
	defer unsubscribeTwo()

	b.Publish(1)
	if got := <-one; got != 1 {
		t.Fatalf("first subscriber got %d, want 1", got)
	}
	if got := <-two; got != 1 {
		t.Fatalf("second subscriber got %d, want 1", got)
	}

	unsubscribeOne()
	unsubscribeOne()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", b.Subscribers())
	}
	if _, ok := <-one; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker[int](1)
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(1)
	b.Publish(2)

	if got := <-ch; got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	select {
	case v := <-ch:
		t.Fatalf("expected the second message to be dropped, got %d", v)
	default:
	}
}
