package storage_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alejandrodnm/freecollateral/internal/adapters/storage"
	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "0xAbC0000000000000000000000000000000000001"

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeSubscriber(id string, created time.Time) domain.Subscriber {
	return domain.Subscriber{
		ID:        id,
		Address:   addr,
		Channel:   domain.ChannelTelegram,
		Target:    "12345",
		Values:    domain.Subscription{"free-collateral": 500.5},
		CreatedAt: created,
	}
}

func TestSQLiteStorage_SaveAndListSubscribers(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, db.SaveSubscriber(ctx, makeSubscriber("b", now)))
	require.NoError(t, db.SaveSubscriber(ctx, makeSubscriber("a", now.Add(-time.Hour))))

	subs, err := db.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	// más antiguas primero
	assert.Equal(t, "a", subs[0].ID)
	assert.Equal(t, "b", subs[1].ID)

	sub := subs[1]
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", sub.Address)
	assert.Equal(t, domain.ChannelTelegram, sub.Channel)
	assert.Equal(t, "12345", sub.Target)
	assert.True(t, now.Equal(sub.CreatedAt))
	assert.Equal(t, json.Number("500.5"), sub.Values["free-collateral"])

	threshold, ok := sub.Values.Number("free-collateral")
	require.True(t, ok)
	assert.Equal(t, 500.5, threshold)
}

func TestSQLiteStorage_SaveSubscriberUpserts(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	sub := makeSubscriber("x", time.Now())
	require.NoError(t, db.SaveSubscriber(ctx, sub))

	sub.Values = domain.Subscription{"free-collateral": 42}
	sub.Channel = domain.ChannelConsole
	require.NoError(t, db.SaveSubscriber(ctx, sub))

	subs, err := db.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.ChannelConsole, subs[0].Channel)
	assert.Equal(t, json.Number("42"), subs[0].Values["free-collateral"])
}

func TestSQLiteStorage_NilValues(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	sub := makeSubscriber("x", time.Now())
	sub.Values = nil
	require.NoError(t, db.SaveSubscriber(ctx, sub))

	subs, err := db.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Empty(t, subs[0].Values)
}

func TestSQLiteStorage_DeleteSubscriber(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, db.SaveSubscriber(ctx, makeSubscriber("x", time.Now())))
	require.NoError(t, db.DeleteSubscriber(ctx, "x"))

	err := db.DeleteSubscriber(ctx, "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	subs, err := db.ListSubscribers(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSQLiteStorage_Notifications(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(t, db.SaveNotification(ctx, domain.NotificationRecord{
			ID:           id,
			SubscriberID: "sub",
			Address:      addr,
			Channel:      domain.ChannelConsole,
			BlockNumber:  uint64(100 + i),
			Message:      "msg " + id,
			Delivered:    i != 1,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := db.ListNotifications(ctx, addr, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "n3", recs[0].ID)
	assert.Equal(t, "n2", recs[1].ID)
	assert.Equal(t, uint64(101), recs[1].BlockNumber)
	assert.False(t, recs[1].Delivered)
	assert.True(t, recs[0].Delivered)

	all, err := db.ListNotifications(ctx, addr, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := db.ListNotifications(ctx, "0xdead", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteStorage_PruneNotifications(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.SaveNotification(ctx, domain.NotificationRecord{
		ID: "old", Address: addr, Message: "old", CreatedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, db.SaveNotification(ctx, domain.NotificationRecord{
		ID: "new", Address: addr, Message: "new", CreatedAt: now,
	}))

	n, err := db.PruneNotifications(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	recs, err := db.ListNotifications(ctx, addr, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].ID)
}
