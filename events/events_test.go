package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turks-backend/core"
)

func startTestNatsServer(t *testing.T) *server.Server {
	opts := &server.Options{
		Host: "127.0.0.1",
		Port: -1, // random port
	}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisherPublishesTaskCreated(t *testing.T) {
	ns := startTestNatsServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe(DefaultSubject, msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := Connect(ns.ClientURL(), "", zap.NewNop())
	require.NoError(t, err)
	defer pub.Close()

	task := core.Task{
		ID:               "task-1",
		Title:            "pick one",
		Creator:          "wallet",
		PaymentSignature: "sig",
		AmountLamports:   100_000_000,
		CreatedAt:        time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Options:          []core.TaskOption{{Position: 0, ImageURL: "a"}, {Position: 1, ImageURL: "b"}},
	}
	require.NoError(t, pub.PublishTaskCreated(context.Background(), task))

	select {
	case msg := <-msgs:
		var ev TaskCreated
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, NewTaskCreated(task), ev)
		assert.Equal(t, 2, ev.OptionCount)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestConnectWithoutURLIsNoop(t *testing.T) {
	pub, err := Connect("", "", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, pub)
	assert.NoError(t, pub.PublishTaskCreated(context.Background(), core.Task{}))
}
