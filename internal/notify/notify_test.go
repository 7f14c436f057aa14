package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Hippes/valentine-duel-bot/internal/models"
)

func testDuel(t *testing.T) *models.Duel {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	b := int64(2)
	return &models.Duel{
		ID:        id,
		UserAID:   1,
		UserBID:   &b,
		Status:    models.DuelStatusMatched,
		CreatedAt: time.Now(),
	}
}

func TestRedisQueuePublish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	queue := NewRedisQueue(client, "")
	d := testDuel(t)
	require.NoError(t, queue.Publish(context.Background(), newEvent(EventMatched, d)))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(items[0]), &ev))
	require.Equal(t, EventMatched, ev.Type)
	require.Equal(t, d.ID, ev.DuelID)
	require.Equal(t, d.UserAID, ev.Duel.UserAID)
}

func TestRedisQueuePublishFailsWhenDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	queue := NewRedisQueue(client, "events")
	err := queue.Publish(context.Background(), newEvent(EventCancelled, testDuel(t)))
	require.Error(t, err)
}

func TestHubDeliversPerDuel(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	d := testDuel(t)
	other := testDuel(t)

	ch, cancel := hub.Subscribe(d.ID)
	defer cancel()

	require.NoError(t, hub.Publish(ctx, newEvent(EventMatched, other)))
	require.NoError(t, hub.Publish(ctx, newEvent(EventCompleted, d)))

	select {
	case ev := <-ch:
		require.Equal(t, EventCompleted, ev.Type)
		require.Equal(t, d.ID, ev.DuelID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q for another duel", ev.Type)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	d := testDuel(t)

	ch, cancel := hub.Subscribe(d.ID)
	cancel()
	cancel() // safe to call twice

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancellation must not panic on the closed channel.
	require.NoError(t, hub.Publish(context.Background(), newEvent(EventMatched, d)))
}

func TestHubDropsOldestWhenSubscriberStalls(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()
	d := testDuel(t)

	ch, cancel := hub.Subscribe(d.ID)
	defer cancel()

	for i := 0; i < 12; i++ {
		ev := newEvent(EventMatched, d)
		ev.Timestamp = int64(i)
		require.NoError(t, hub.Publish(ctx, ev))
	}

	// The buffer holds the newest eight events; the oldest were dropped.
	var got []int64
	for len(ch) > 0 {
		got = append(got, (<-ch).Timestamp)
	}
	require.Len(t, got, 8)
	require.EqualValues(t, 4, got[0])
	require.EqualValues(t, 11, got[len(got)-1])
}

func TestFanoutAttemptsEverySink(t *testing.T) {
	var delivered []string
	good := sinkFunc(func(_ context.Context, ev Event) error {
		delivered = append(delivered, ev.Type)
		return nil
	})
	bad := sinkFunc(func(context.Context, Event) error {
		return fmt.Errorf("sink down")
	})

	fanout := NewFanout(bad, good)
	err := fanout.DuelCompleted(context.Background(), testDuel(t))
	require.EqualError(t, err, "sink down")
	require.Equal(t, []string{EventCompleted}, delivered)
}

type sinkFunc func(ctx context.Context, ev Event) error

func (f sinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }
