package room

import "github.com/mcdev12/whist/go/internal/whist/events"

// Emitter receives every notification a room produces, in order. Emit is
// called while the room is locked, so it must not block or call back into
// the room.
type Emitter interface {
	Emit(roomCode string, evs []events.Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(roomCode string, evs []events.Event)

func (f EmitterFunc) Emit(roomCode string, evs []events.Event) { f(roomCode, evs) }

// Fanout delivers to several emitters in order.
type Fanout []Emitter

func (f Fanout) Emit(roomCode string, evs []events.Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(roomCode, evs)
		}
	}
}

type discard struct{}

func (discard) Emit(string, []events.Event) {}
