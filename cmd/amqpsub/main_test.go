package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/qvcloud/subscription"
	"github.com/qvcloud/subscription/subscriptions/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProtocolsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"protocols"})
	require.NoError(t, rootCmd.Execute())

	var protocols []subscription.Protocol
	require.NoError(t, json.Unmarshal(out.Bytes(), &protocols))

	names := make([]string, 0, len(protocols))
	for _, p := range protocols {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "amqp")
}

func TestListenConfig_Attributes(t *testing.T) {
	attrs := listenConfig{url: "amqp://rabbit", queue: "jobs", exchange: "ex", routingKey: "rk", durable: true}.attributes()
	assert.Equal(t, "jobs", attrs["queueName"])
	assert.Equal(t, "ex", attrs["exchange"])
	assert.Equal(t, "rk", attrs["routingKey"])
	assert.Equal(t, map[string]any{"url": "amqp://rabbit"}, attrs["options"])
	assert.Equal(t, map[string]any{"durable": true, "autoDelete": false}, attrs["queueOptions"])

	attrs = listenConfig{}.attributes()
	assert.NotContains(t, attrs, "queueName")
	assert.NotContains(t, attrs, "exchange")
}

func TestListen(t *testing.T) {
	b := amqp.NewMemoryBroker()
	out := &syncBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- listen(context.Background(), out, listenConfig{
			queue:      "jobs",
			exchange:   "events",
			routingKey: "job.created",
			count:      2,
			timeout:    5 * time.Second,
		}, amqp.WithConnector(b.Connector()))
	}()

	require.Eventually(t, func() bool { return b.Bound("jobs", "events", "job.created") }, time.Second, time.Millisecond)
	for i := 1; i <= 2; i++ {
		b.Publish("events", "job.created", amqp.Delivery{
			Body: []byte(fmt.Sprintf(`{"n":%d}`, i)),
			Info: amqp.DeliveryInfo{ContentType: "application/json"},
		})
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return")
	}

	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, map[string]any{"n": float64(1)}, lines[0]["payload"])
	assert.Equal(t, map[string]any{"n": float64(2)}, lines[1]["payload"])
	info := lines[0]["deliveryInfo"].(map[string]any)
	assert.Equal(t, "jobs", info["queue"])
	assert.Equal(t, "events", info["exchange"])

	assert.False(t, b.Queue("jobs"), "the queue is auto-deleted after listen returns")
}

func TestListen_Timeout(t *testing.T) {
	b := amqp.NewMemoryBroker()
	err := listen(context.Background(), &syncBuffer{}, listenConfig{
		queue:   "idle",
		count:   1,
		timeout: 20 * time.Millisecond,
	}, amqp.WithConnector(b.Connector()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListen_ConnectError(t *testing.T) {
	b := amqp.NewMemoryBroker()
	b.FailConnections(assert.AnError)

	err := listen(context.Background(), &syncBuffer{}, listenConfig{queue: "jobs", count: 1}, amqp.WithConnector(b.Connector()))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "subscribe to jobs")
}
