package propagation

import (
	"context"
	"hash/fnv"
	"sort"

	"github.com/google/uuid"
)

// ComponentLocker serializes writes per linked-item component. Item IDs map
// onto a fixed set of stripes; callers acquire every stripe their component
// touches before opening the transaction. Stripes are always taken in index
// order so two overlapping components cannot deadlock each other.
type ComponentLocker struct {
	stripes []chan struct{}
}

// NewComponentLocker builds a locker with the given stripe count. Counts
// below one fall back to a single stripe.
func NewComponentLocker(stripes int) *ComponentLocker {
	if stripes < 1 {
		stripes = 1
	}
	l := &ComponentLocker{stripes: make([]chan struct{}, stripes)}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

func (l *ComponentLocker) stripeFor(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// Lock acquires the stripes covering ids and returns the release function.
// It honors context cancellation while waiting, releasing anything already
// held before returning the context error.
func (l *ComponentLocker) Lock(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	indexes := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		idx := l.stripeFor(id)
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	held := make([]int, 0, len(indexes))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-l.stripes[held[i]]
		}
	}
	for _, idx := range indexes {
		select {
		case l.stripes[idx] <- struct{}{}:
			held = append(held, idx)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
