// Package notify publishes process-wide upload outcome events.
// Uploaders don't know who listens; consumers subscribe to a Center by event name.
package notify

import (
	"sync"
	"time"
)

// Event names.
const (
	UploadErrorEvent    = "multipart.upload.error"
	UploadCompleteEvent = "multipart.upload.success"
)

// Notification describes the terminal outcome of one upload.
type Notification struct {
	Name          string
	FilePath      string
	Destination   string
	PartsUploaded int
	PartsTotal    int
	BytesUploaded int64
	Duration      time.Duration
	Err           error
}

// Notifier publishes notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(n Notification)

// Notify ...
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// Nop discards every notification.
type Nop struct{}

// Notify ...
func (Nop) Notify(Notification) {}

type subscription struct {
	id int
	fn func(Notification)
}

// Center fans notifications out to subscribers of the notification name.
// Subscribers are called synchronously, in subscription order.
type Center struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

// NewCenter ...
func NewCenter() *Center {
	return &Center{subs: map[string][]subscription{}}
}

// Subscribe registers fn for notifications called name.
// The returned function removes the subscription.
func (c *Center) Subscribe(name string, fn func(Notification)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs[name] = append(c.subs[name], subscription{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		subs := c.subs[name]
		for i, s := range subs {
			if s.id == id {
				c.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Notify ...
func (c *Center) Notify(n Notification) {
	c.mu.RLock()
	subs := make([]subscription, len(c.subs[n.Name]))
	copy(subs, c.subs[n.Name])
	c.mu.RUnlock()

	for _, s := range subs {
		s.fn(n)
	}
}

// Multi publishes to every notifier in order.
type Multi []Notifier

// Notify ...
func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
