package main

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Machines is the registry of lease machines, keyed by client MAC.
type Machines struct {
	mu       sync.Mutex
	machines map[MACKey]*Machine
	broker   *Broker[IdentifiedEvent]
	history  int
}

func NewMachines(broker *Broker[IdentifiedEvent], history int) *Machines {
	return &Machines{
		machines: make(map[MACKey]*Machine),
		broker:   broker,
		history:  history,
	}
}

func (m *Machines) GetOrInitMachine(mac net.HardwareAddr) *Machine {
	key := MACKey(mac.String())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.machines[key] == nil {
		m.machines[key] = NewMachine(mac, m.broker, m.history)
	}

	return m.machines[key]
}

func (m *Machines) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return json.Marshal(m.machines)
}

// Machine follows one client through the DHCPv6 lease lifecycle.
type Machine struct {
	mu     sync.Mutex
	Mac    MAC
	fsm    *fsm.FSM
	Events *Ring[Event]
	broker *Broker[IdentifiedEvent]
}

type MAC net.HardwareAddr
type MACKey string

type IdentifiedEvent struct {
	Mac   MAC   `json:"mac"`
	Event Event `json:"event"`
}

type Event struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

var bogusTimestamp *string

func makeTimeBogus() {
	bogus := "bogustime"
	bogusTimestamp = &bogus
}

func (m MAC) String() string {
	return net.HardwareAddr(m).String()
}

func (m MAC) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func NewEvent(event string) Event {
	ev := Event{
		Event: event,
	}

	if bogusTimestamp == nil {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	} else {
		ev.Timestamp = *bogusTimestamp
	}

	return ev
}

const (
	stateReset   = "reset"
	stateSolicit = "solicit"
	stateRequest = "request"
	stateBound   = "bound"
	stateRenew   = "renew"
	stateRebind  = "rebind"
	stateConfirm = "confirm"
	stateRelease = "release"
)

func NewMachine(mac net.HardwareAddr, broker *Broker[IdentifiedEvent], history int) *Machine {
	machine := Machine{
		Mac:    MAC(mac),
		broker: broker,
		Events: NewRing[Event](history),
	}

	machine.fsm = fsm.NewFSM(
		stateReset,
		fsm.Events{
			{Name: stateSolicit, Src: []string{stateReset, stateRelease}, Dst: stateSolicit},
			{Name: stateRequest, Src: []string{stateSolicit}, Dst: stateRequest},

			{Name: stateRenew, Src: []string{stateBound}, Dst: stateRenew},
			{Name: stateRebind, Src: []string{stateBound, stateRenew}, Dst: stateRebind},
			{Name: stateConfirm, Src: []string{stateBound, stateReset}, Dst: stateConfirm},

			{Name: stateBound, Src: []string{stateRequest, stateRenew, stateRebind, stateConfirm}, Dst: stateBound},
			{Name: stateRelease, Src: []string{stateBound, stateRenew, stateRebind}, Dst: stateRelease},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				machine.Events.Push(NewEvent(e.Dst))
			},
		},
	)

	init := NewEvent("init")
	machine.Events.Push(init)
	broker.Publish(IdentifiedEvent{
		Mac:   MAC(mac),
		Event: init,
	})

	return &machine
}

func (m *Machine) MarshalJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return json.Marshal(struct {
		Mac    MAC
		State  string
		Events *Ring[Event]
	}{m.Mac, m.fsm.Current(), m.Events})
}

func (m *Machine) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fsm.Current()
}

// History returns the recorded events, oldest first.
func (m *Machine) History() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Events.Slice()
}

// Event moves the machine to the state named by event. A client that shows
// up mid-lifecycle (e.g. renewing a lease this process never saw) jumps
// straight there.
func (m *Machine) Event(ctx context.Context, event string, args ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fsm.Is(event) {
		return nil
	}

	if m.fsm.Cannot(event) {
		m.resetTo(event)
		return nil
	}

	err := m.fsm.Event(ctx, event, args...)
	if err == nil {
		m.broker.Publish(IdentifiedEvent{
			Mac:   m.Mac,
			Event: NewEvent(event),
		})
	}
	return err
}

func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := NewEvent(stateReset)
	m.broker.Publish(IdentifiedEvent{
		Mac:   m.Mac,
		Event: event,
	})

	m.Events.Push(event)
	m.fsm.SetState(stateReset)
}

func (m *Machine) resetTo(event string) {
	jump := NewEvent("jump_to")
	m.Events.Push(jump)

	m.broker.Publish(IdentifiedEvent{
		Mac:   m.Mac,
		Event: jump,
	})

	m.fsm.SetState(event)

	ev := NewEvent(event)
	m.Events.Push(ev)

	m.broker.Publish(IdentifiedEvent{
		Mac:   m.Mac,
		Event: ev,
	})
}
