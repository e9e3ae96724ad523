package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/taxi/core/keystore"
)

// ReplyStrategy shapes the device replies before they go back to the host.
type ReplyStrategy interface {
	Reply(ctx context.Context, replies []byte) []byte
}

// AutoReply forwards the device replies after an optional fixed delay.
type AutoReply struct {
	Delay time.Duration
}

// Reply implements ReplyStrategy.
func (a AutoReply) Reply(ctx context.Context, replies []byte) []byte {
	if !wait(ctx, a.Delay) {
		return nil
	}
	return replies
}

// FlakyReply drops replies with DropRate and turns acknowledgments into
// retry requests with NakRate before waiting for the delay.
type FlakyReply struct {
	Delay    time.Duration
	DropRate float64
	NakRate  float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFlakyReply seeds the strategy's random source.
func NewFlakyReply(delay time.Duration, dropRate, nakRate float64, seed int64) *FlakyReply {
	return &FlakyReply{Delay: delay, DropRate: dropRate, NakRate: nakRate, rng: rand.New(rand.NewSource(seed))}
}

// Reply implements ReplyStrategy.
func (f *FlakyReply) Reply(ctx context.Context, replies []byte) []byte {
	out := make([]byte, 0, len(replies))
	f.mu.Lock()
	for _, b := range replies {
		if f.DropRate > 0 && f.rng.Float64() < f.DropRate {
			continue
		}
		if b == keystore.ControlAck && f.NakRate > 0 && f.rng.Float64() < f.NakRate {
			b = keystore.ControlRetry
		}
		out = append(out, b)
	}
	f.mu.Unlock()
	if !wait(ctx, f.Delay) {
		return nil
	}
	return out
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
