package handlers

import (
	"context"
	"sync"
	"time"
)

const (
	ResultSuccess = "success"
	ResultCancel  = "cancel"
)

// Landing is one return from the payment gateway. It records what the gateway
// said on the redirect; nothing here confirms the transaction.
type Landing struct {
	Result        string    `json:"result"`
	TransactionID string    `json:"transactionId,omitempty"`
	OrderID       string    `json:"orderId,omitempty"`
	RequestID     string    `json:"requestId,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

// Landings keeps the latest landing and wakes a waiting caller.
type Landings struct {
	mu   sync.Mutex
	last *Landing
	ch   chan Landing
}

func NewLandings() *Landings {
	return &Landings{ch: make(chan Landing, 1)}
}

func (l *Landings) Record(landing Landing) {
	l.mu.Lock()
	l.last = &landing
	l.mu.Unlock()

	// keep only the newest pending landing
	select {
	case <-l.ch:
	default:
	}
	select {
	case l.ch <- landing:
	default:
	}
}

func (l *Landings) Last() (Landing, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		return Landing{}, false
	}
	return *l.last, true
}

// Wait blocks until the next landing or until ctx is done.
func (l *Landings) Wait(ctx context.Context) (Landing, error) {
	select {
	case landing := <-l.ch:
		return landing, nil
	case <-ctx.Done():
		return Landing{}, ctx.Err()
	}
}
