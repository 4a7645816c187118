// Package notify keeps the toast notifications shown to the user. The CLI
// renders them through zap; tests read them back from History.
package notify

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Type string

const (
	Info    Type = "info"
	Success Type = "success"
	Warning Type = "warning"
	Error   Type = "error"
)

const DefaultDuration = 5 * time.Second

type Notification struct {
	ID         string
	Type       Type
	Title      string
	Message    string
	Duration   time.Duration
	Persistent bool
}

// Notifier is what the gateway and services need to raise a toast.
type Notifier interface {
	Show(n Notification) string
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Show(Notification) string { return "" }

// Center tracks active notifications and expires them after their duration.
type Center struct {
	mu      sync.Mutex
	log     *zap.Logger
	count   int
	active  []Notification
	history []Notification
}

func NewCenter(log *zap.Logger) *Center {
	if log == nil {
		log = zap.NewNop()
	}
	return &Center{log: log}
}

// Show records n, logs it and schedules its removal unless it is persistent.
func (c *Center) Show(n Notification) string {
	c.mu.Lock()
	c.count++
	n.ID = fmt.Sprintf("notification-%d", c.count)
	if n.Duration == 0 {
		n.Duration = DefaultDuration
	}
	c.active = append(c.active, n)
	c.history = append(c.history, n)
	c.mu.Unlock()

	c.emit(n)

	if !n.Persistent {
		id := n.ID
		time.AfterFunc(n.Duration, func() { c.Remove(id) })
	}
	return n.ID
}

func (c *Center) emit(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("id", n.ID)}
	switch n.Type {
	case Error:
		c.log.Error(n.Message, fields...)
	case Warning:
		c.log.Warn(n.Message, fields...)
	default:
		c.log.Info(n.Message, fields...)
	}
}

func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.active[:0]
	for _, n := range c.active {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.active = kept
}

func (c *Center) Clear() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
}

// Active returns the notifications still on screen.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.active...)
}

// History returns every notification shown so far, in order.
func (c *Center) History() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.history...)
}

func (c *Center) Info(title, message string) string {
	return c.Show(Notification{Type: Info, Title: title, Message: message})
}

func (c *Center) Success(title, message string) string {
	return c.Show(Notification{Type: Success, Title: title, Message: message})
}

func (c *Center) Warning(title, message string) string {
	return c.Show(Notification{Type: Warning, Title: title, Message: message})
}

func (c *Center) Error(title, message string) string {
	return c.Show(Notification{Type: Error, Title: title, Message: message})
}

// Backend lifecycle toasts raised by the gateway.

func BackendWaking() Notification {
	return Notification{
		Type:     Info,
		Title:    "Conectando al servidor",
		Message:  "El backend está despertando, esto puede tomar unos segundos...",
		Duration: 10 * time.Second,
	}
}

func BackendOnline() Notification {
	return Notification{
		Type:     Success,
		Title:    "Conexión establecida",
		Message:  "Backend conectado exitosamente",
		Duration: 3 * time.Second,
	}
}

func BackendOffline() Notification {
	return Notification{
		Type:     Warning,
		Title:    "Modo offline",
		Message:  "Usando datos locales. Algunas funciones pueden estar limitadas.",
		Duration: 8 * time.Second,
	}
}

// Offline is shown every time a demo payload replaces a live response.
func Offline() Notification {
	return Notification{
		Type:    Warning,
		Title:   "Sin conexión",
		Message: "Trabajando sin conexión. Datos de demostración",
	}
}
