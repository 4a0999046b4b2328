package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/services/social/internal/cache"
)

type keyRecorder struct{ keys []string }

func (r *keyRecorder) Invalidate(_ context.Context, keys ...string) {
	r.keys = append(r.keys, keys...)
}

func payload(t *testing.T, ev events.Event) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestKeysFor(t *testing.T) {
	t.Parallel()
	like := events.NewEvent(events.SubjectLiked, "alice", "post-1", nil)
	assert.Equal(t, []string{cache.PostKey("post-1")}, KeysFor(events.SubjectLiked, like))

	follow := events.NewEvent(events.SubjectFollowed, "alice", "bob", nil)
	assert.Equal(t, []string{cache.ProfileKey("bob"), cache.ProfileKey("alice")}, KeysFor(events.SubjectFollowed, follow))

	comment := events.NewEvent(events.SubjectCommentCreated, "alice", "c1", map[string]any{"post_id": "post-9"})
	assert.Equal(t, []string{cache.PostKey("post-9")}, KeysFor(events.SubjectCommentCreated, comment))

	bare := events.NewEvent(events.SubjectCommentDeleted, "alice", "c1", nil)
	assert.Empty(t, KeysFor(events.SubjectCommentDeleted, bare))

	assert.Empty(t, KeysFor("social.unknown", like))
}

func TestProcess_DeduplicatesWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	rec := &keyRecorder{}
	c := NewConsumer(rec, NewRedisDeduper(rdb, time.Hour), nil, Options{})
	ctx := context.Background()

	ev := events.NewEvent(events.SubjectUnliked, "alice", "post-1", nil)
	data := payload(t, ev)

	require.NoError(t, c.Process(ctx, events.SubjectUnliked, data))
	require.NoError(t, c.Process(ctx, events.SubjectUnliked, data))

	assert.Equal(t, []string{cache.PostKey("post-1")}, rec.keys, "a redelivered event is applied once")
	assert.True(t, mr.Exists("pentagram:event:"+ev.EventID))
}

func TestProcess_DedupFailureRetries(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	rec := &keyRecorder{}
	c := NewConsumer(rec, NewRedisDeduper(rdb, time.Hour), nil, Options{})
	ev := events.NewEvent(events.SubjectLiked, "alice", "post-1", nil)

	assert.Error(t, c.Process(context.Background(), events.SubjectLiked, payload(t, ev)))
	assert.Empty(t, rec.keys)
}

func TestProcess_MalformedIsDropped(t *testing.T) {
	rec := &keyRecorder{}
	c := NewConsumer(rec, nil, nil, Options{})

	assert.NoError(t, c.Process(context.Background(), events.SubjectLiked, []byte("{")))
	assert.NoError(t, c.Process(context.Background(), events.SubjectLiked, []byte(`{"event_name":"x"}`)))
	assert.Empty(t, rec.keys)
}

func TestMemoryDeduper_Expires(t *testing.T) {
	d := NewMemoryDeduper(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	dup, _ := d.Check(ctx, "e1")
	assert.False(t, dup)
	dup, _ = d.Check(ctx, "e1")
	assert.True(t, dup)

	now = now.Add(2 * time.Minute)
	dup, _ = d.Check(ctx, "e1")
	assert.False(t, dup, "entries older than ttl are forgotten")
}
