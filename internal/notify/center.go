// Package notify holds transient user-facing signals. Each notification removes itself
// after its duration unless dismissed earlier.
package notify

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

type Center struct {
	mu     sync.Mutex
	items  []models.Notification
	timers map[string]*time.Timer
	subs   map[int]func([]models.Notification)
	order  []int
	nextID int
	now    func() time.Time
	after  func(d time.Duration, f func()) *time.Timer
}

func NewCenter() *Center {
	return &Center{
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]func([]models.Notification)),
		now:    time.Now,
		after:  time.AfterFunc,
	}
}

// Add appends a notification and returns its id. A zero duration means the default.
func (c *Center) Add(kind models.NotificationType, message string, duration time.Duration) string {
	if duration <= 0 {
		duration = models.DefaultNotificationDuration
	}
	n := models.Notification{
		ID:        ksuid.New().String(),
		Type:      kind,
		Message:   message,
		Duration:  duration,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	next := make([]models.Notification, len(c.items), len(c.items)+1)
	copy(next, c.items)
	c.items = append(next, n)
	c.timers[n.ID] = c.after(duration, func() { c.Remove(n.ID) })
	c.mu.Unlock()

	c.publish()
	return n.ID
}

func (c *Center) Success(message string) string {
	return c.Add(models.NotificationSuccess, message, 0)
}

func (c *Center) Error(message string) string {
	return c.Add(models.NotificationError, message, 0)
}

func (c *Center) Warning(message string) string {
	return c.Add(models.NotificationWarning, message, 0)
}

func (c *Center) Info(message string) string {
	return c.Add(models.NotificationInfo, message, 0)
}

// Remove drops the notification with id. Unknown ids are ignored.
func (c *Center) Remove(id string) {
	c.mu.Lock()
	idx := -1
	for i, n := range c.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	next := make([]models.Notification, 0, len(c.items)-1)
	next = append(next, c.items[:idx]...)
	c.items = append(next, c.items[idx+1:]...)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	c.publish()
}

func (c *Center) Clear() {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.items = nil
	c.mu.Unlock()

	c.publish()
}

// List returns the current notifications in insertion order.
func (c *Center) List() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Subscribe registers fn to receive the list after every change.
func (c *Center) Subscribe(fn func([]models.Notification)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs[id] = fn
	c.order = append(c.order, id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Center) publish() {
	c.mu.Lock()
	items := c.items
	fns := make([]func([]models.Notification), 0, len(c.subs))
	for _, id := range c.order {
		if fn, ok := c.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(items)
	}
}
