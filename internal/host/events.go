package host

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
)

// EventName identifies a lifecycle event.
type EventName string

const (
	// EventBuilderInited fires once the active builder has been initialized.
	EventBuilderInited EventName = "builder-inited"
	// EventBeforeReadDocs fires after source discovery and before any document is read.
	EventBeforeReadDocs EventName = "env-before-read-docs"
)

var knownEvents = map[EventName]struct{}{
	EventBuilderInited:  {},
	EventBeforeReadDocs: {},
}

// EventHandler is invoked with the application and the build environment.
type EventHandler func(ctx context.Context, app *Application, env *Environment) error

type listener struct {
	id      int
	handler EventHandler
}

// Connect subscribes handler to event and returns a listener id.
func (a *Application) Connect(event EventName, handler EventHandler) (int, error) {
	if _, ok := knownEvents[event]; !ok {
		return 0, errors.ExtensionError("unknown event name").WithContext("event", string(event)).Build()
	}
	if handler == nil {
		return 0, errors.ExtensionError("nil event handler").WithContext("event", string(event)).Build()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextListener++
	a.listeners[event] = append(a.listeners[event], listener{id: a.nextListener, handler: handler})
	return a.nextListener, nil
}

// Disconnect removes the listener with id.
func (a *Application) Disconnect(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for event, ls := range a.listeners {
		kept := ls[:0]
		for _, l := range ls {
			if l.id != id {
				kept = append(kept, l)
			}
		}
		a.listeners[event] = kept
	}
}

// Emit calls the handlers of event in registration order, stopping at the first error.
func (a *Application) Emit(ctx context.Context, event EventName, env *Environment) error {
	a.mu.RLock()
	ls := append([]listener(nil), a.listeners[event]...)
	a.mu.RUnlock()

	for _, l := range ls {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.logger.Debug("Emitting event", logfields.Event(string(event)), "listener", l.id)
		if err := l.handler(ctx, a, env); err != nil {
			return fmt.Errorf("handler for %s: %w", event, err)
		}
	}
	return nil
}
