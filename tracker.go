package subscription

import (
	"context"
	"sort"
	"sync"
)

type trackerKey struct{}

// optionTracker remembers which protocol-specific options were set on a
// context and which of them a driver actually read.
type optionTracker struct {
	mu       sync.Mutex
	names    map[any]string
	consumed map[any]bool
}

type trackedValue struct {
	key any
}

// TrackOptions returns a context that records tracked values set on it.
func TrackOptions(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(trackerKey{}).(*optionTracker); ok {
		return ctx
	}
	return context.WithValue(ctx, trackerKey{}, &optionTracker{
		names:    make(map[any]string),
		consumed: make(map[any]bool),
	})
}

// WithTrackedValue stores val under key. name is the option constructor
// reported by WarnUnconsumed if no driver reads the value.
func WithTrackedValue(ctx context.Context, key, val any, name string) context.Context {
	ctx = TrackOptions(ctx)
	t := ctx.Value(trackerKey{}).(*optionTracker)
	t.mu.Lock()
	t.names[key] = name
	delete(t.consumed, key)
	t.mu.Unlock()
	return context.WithValue(ctx, trackedValue{key: key}, val)
}

// GetTrackedValue returns the value stored under key and marks it consumed.
func GetTrackedValue(ctx context.Context, key any) any {
	if ctx == nil {
		return nil
	}
	if t, ok := ctx.Value(trackerKey{}).(*optionTracker); ok {
		t.mu.Lock()
		if _, known := t.names[key]; known {
			t.consumed[key] = true
		}
		t.mu.Unlock()
	}
	return ctx.Value(trackedValue{key: key})
}

// WarnUnconsumed logs every tracked option nobody read.
func WarnUnconsumed(ctx context.Context, logger Logger) {
	if ctx == nil || logger == nil {
		return
	}
	t, ok := ctx.Value(trackerKey{}).(*optionTracker)
	if !ok {
		return
	}

	t.mu.Lock()
	var names []string
	for key, name := range t.names {
		if !t.consumed[key] {
			names = append(names, name)
		}
	}
	t.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		logger.Logf("subscription: option %s was set but not used by this protocol", name)
	}
}
