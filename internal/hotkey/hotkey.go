// Package hotkey routes named shortcut intents through per-intent debouncing
// so a key held or hammered in-game fires its action once.
package hotkey

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Dispatcher maps intent names to actions. Trigger may be called from any
// goroutine; actions run on the debouncer's timer goroutine after the quiet
// interval elapses.
type Dispatcher struct {
	wait time.Duration
	log  *slog.Logger

	mu      sync.Mutex
	actions map[string]func()
	bouncer map[string]func(func())
}

func NewDispatcher(wait time.Duration, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		wait:    wait,
		log:     log,
		actions: make(map[string]func()),
		bouncer: make(map[string]func(func())),
	}
}

// Bind registers (or replaces) the action for an intent name.
func (d *Dispatcher) Bind(name string, action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions[name] = action
	if _, ok := d.bouncer[name]; !ok {
		d.bouncer[name] = debounce.New(d.wait)
	}
}

// Trigger fires an intent. Unknown names are logged and dropped.
func (d *Dispatcher) Trigger(name string) bool {
	d.mu.Lock()
	action, ok := d.actions[name]
	deb := d.bouncer[name]
	d.mu.Unlock()
	if !ok {
		d.log.Warn("unknown hotkey intent", "name", name)
		return false
	}
	deb(action)
	return true
}
