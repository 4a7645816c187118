package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// Snapshot is the open conversation after a poll.
type Snapshot struct {
	ChatID   int64
	Messages []Message
	At       time.Time
}

// Poller refreshes the first page of the open conversation on a fixed
// interval. At most one conversation is polled at a time.
type Poller struct {
	svc      *Service
	interval time.Duration
	log      *zap.Logger
	updates  chan Snapshot

	mu     sync.Mutex
	active *Chat
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(svc *Service, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		svc:      svc,
		interval: interval,
		log:      log.Named("chat.poller"),
		updates:  make(chan Snapshot, 1),
	}
}

// Updates delivers the latest snapshot. A slow reader only misses
// intermediate snapshots.
func (p *Poller) Updates() <-chan Snapshot { return p.updates }

// Open makes c the active conversation and starts polling it, stopping any
// previous poll first. Polling ends when ctx is done or Close is called.
func (p *Poller) Open(ctx context.Context, c Chat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	active := c
	p.active, p.cancel, p.done = &active, cancel, done

	go p.run(ctx, c.ID, done)
	p.log.Debug("polling chat", zap.Int64("chat", c.ID), zap.Duration("interval", p.interval))
}

// Close stops polling and clears the conversation's messages.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
	p.active = nil
	p.svc.clearMessages()
}

// Active is the open conversation, or nil.
func (p *Poller) Active() *Chat {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	c := *p.active
	return &c
}

// stop must be called with p.mu held.
func (p *Poller) stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
}

func (p *Poller) run(ctx context.Context, chatID int64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if _, err := p.svc.Messages(ctx, chatID, 1); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("chat poll failed", zap.Int64("chat", chatID), zap.Error(err))
			continue
		}
		p.publish(Snapshot{ChatID: chatID, Messages: p.svc.CurrentMessages(), At: time.Now()})
	}
}

func (p *Poller) publish(s Snapshot) {
	for {
		select {
		case p.updates <- s:
			return
		default:
		}
		// drop the stale snapshot and try again
		select {
		case <-p.updates:
		default:
		}
	}
}
