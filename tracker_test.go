package subscription_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/qvcloud/subscription"
	"github.com/stretchr/testify/assert"
)

type mockLogger struct {
	warnings []string
}

func (l *mockLogger) Log(v ...any) {}
func (l *mockLogger) Logf(format string, v ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func TestOptionTracker(t *testing.T) {
	logger := &mockLogger{}
	ctx := context.Background()

	type testKey struct{}

	ctx = subscription.WithTrackedValue(ctx, testKey{}, "val", "test.WithOption")

	subscription.WarnUnconsumed(ctx, logger)
	assert.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "test.WithOption")

	logger.warnings = nil

	val := subscription.GetTrackedValue(ctx, testKey{})
	assert.Equal(t, "val", val)

	subscription.WarnUnconsumed(ctx, logger)
	assert.Len(t, logger.warnings, 0)
}

func TestOptionTracker_SortedWarnings(t *testing.T) {
	logger := &mockLogger{}
	type aKey struct{}
	type bKey struct{}

	ctx := subscription.TrackOptions(context.Background())
	ctx = subscription.WithTrackedValue(ctx, bKey{}, 2, "x.WithB")
	ctx = subscription.WithTrackedValue(ctx, aKey{}, 1, "x.WithA")

	subscription.WarnUnconsumed(ctx, logger)
	assert.Len(t, logger.warnings, 2)
	assert.Contains(t, logger.warnings[0], "x.WithA")
	assert.Contains(t, logger.warnings[1], "x.WithB")
}

func TestOptionTracker_Untracked(t *testing.T) {
	logger := &mockLogger{}
	type testKey struct{}

	assert.Nil(t, subscription.GetTrackedValue(context.Background(), testKey{}))
	assert.Nil(t, subscription.GetTrackedValue(nil, testKey{}))

	subscription.WarnUnconsumed(context.Background(), logger)
	subscription.WarnUnconsumed(nil, logger)
	assert.Empty(t, logger.warnings)
}

func TestTrackOptions_Reuses(t *testing.T) {
	ctx := subscription.TrackOptions(context.Background())
	assert.Equal(t, ctx, subscription.TrackOptions(ctx))
}
