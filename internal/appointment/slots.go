package appointment

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleSlots means a newer slot request was issued while this one was in flight.
var ErrStaleSlots = errors.New("slot response superseded by a newer request")

type SlotSource interface {
	GetAvailableSlots(ctx context.Context, doctorID, date string) ([]string, error)
}

// SlotFinder tags each doctor/date lookup with a sequence number and only lets the
// latest issued request publish its result.
type SlotFinder struct {
	source SlotSource

	mu     sync.Mutex
	issued uint64
	slots  []string
	doctor string
	date   string
}

func NewSlotFinder(source SlotSource) *SlotFinder {
	return &SlotFinder{source: source}
}

// Find fetches slots for doctorID on date. A response overtaken by a later Find
// returns ErrStaleSlots and leaves the current slots untouched.
func (f *SlotFinder) Find(ctx context.Context, doctorID, date string) ([]string, error) {
	f.mu.Lock()
	f.issued++
	seq := f.issued
	f.mu.Unlock()

	slots, err := f.source.GetAvailableSlots(ctx, doctorID, date)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.issued {
		return nil, ErrStaleSlots
	}
	if err != nil {
		return nil, err
	}
	f.slots = slots
	f.doctor, f.date = doctorID, date
	return slots, nil
}

// Current returns the slots of the latest applied response and the doctor/date they belong to.
func (f *SlotFinder) Current() (slots []string, doctorID, date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots, f.doctor, f.date
}

// Reset clears the slots and invalidates any request still in flight.
func (f *SlotFinder) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	f.slots = nil
	f.doctor, f.date = "", ""
}
