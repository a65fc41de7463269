package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream-backend/application/ports"
	apperrors "clipstream-backend/pkg/errors"
)

func TestEntityStore_CreateAndGet(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	doc := ports.Document{"id": "u1", "username": "alice", "followers": []string{"u2"}}
	_, err := store.Create(ctx, ports.CollectionUsers, doc)
	require.NoError(t, err)

	got, err := store.Get(ctx, ports.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got["username"])

	// Mutating a returned document must not leak into stored state.
	got["username"] = "mallory"
	again, err := store.Get(ctx, ports.CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", again["username"])
}

func TestEntityStore_CreateDuplicate(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	_, err := store.Create(ctx, ports.CollectionUsers, ports.Document{"id": "u1"})
	require.NoError(t, err)

	_, err = store.Create(ctx, ports.CollectionUsers, ports.Document{"id": "u1"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestEntityStore_GetMissing(t *testing.T) {
	store := NewEntityStore()

	_, err := store.Get(context.Background(), ports.CollectionVideos, "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEntityStore_UpdateFieldsMissing(t *testing.T) {
	store := NewEntityStore()

	_, err := store.UpdateFields(context.Background(), ports.CollectionUsers, "nope", ports.Document{"bio": "x"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEntityStore_AtomicAddToSet(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	_, err := store.Create(ctx, ports.CollectionVideos, ports.Document{"id": "v1"})
	require.NoError(t, err)

	added, err := store.AtomicAddToSet(ctx, ports.CollectionVideos, "v1", "likedBy", "u1", "likes")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.AtomicAddToSet(ctx, ports.CollectionVideos, "v1", "likedBy", "u1", "likes")
	require.NoError(t, err)
	assert.False(t, added, "duplicate member must not be applied")

	// The paired counter moved exactly once, with the single applied add.
	doc, err := store.Get(ctx, ports.CollectionVideos, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["likes"])

	// A missing document is reported as not applied, not as an error.
	added, err = store.AtomicAddToSet(ctx, ports.CollectionVideos, "missing", "likedBy", "u1", "likes")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestEntityStore_AtomicRemoveFromSet(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	_, err := store.Create(ctx, ports.CollectionVideos, ports.Document{"id": "v1", "likedBy": []string{"u1"}, "likes": int64(1)})
	require.NoError(t, err)

	removed, err := store.AtomicRemoveFromSet(ctx, ports.CollectionVideos, "v1", "likedBy", "u1", "likes")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.AtomicRemoveFromSet(ctx, ports.CollectionVideos, "v1", "likedBy", "u1", "likes")
	require.NoError(t, err)
	assert.False(t, removed, "absent member must not be applied")

	// The counter dropped with the applied remove and stayed put on the no-op.
	doc, err := store.Get(ctx, ports.CollectionVideos, "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc["likes"])
}

func TestEntityStore_AtomicIncrementAndAddToSet(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	_, err := store.AtomicIncrementAndAddToSet(ctx, ports.CollectionVideos, "missing", "shared", "sharedBy", "u1")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Create(ctx, ports.CollectionVideos, ports.Document{"id": "v1"})
	require.NoError(t, err)

	total, err := store.AtomicIncrementAndAddToSet(ctx, ports.CollectionVideos, "v1", "shared", "sharedBy", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// A repeat by the same user still counts; the set stays deduplicated.
	total, err = store.AtomicIncrementAndAddToSet(ctx, ports.CollectionVideos, "v1", "shared", "sharedBy", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	doc, err := store.Get(ctx, ports.CollectionVideos, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, doc["sharedBy"])
}

func TestEntityStore_AtomicIncrement(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	// Without a floor the counter document bootstraps on first increment.
	next, err := store.AtomicIncrement(ctx, ports.CollectionMessages, "seq#a#b", "value", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	next, err = store.AtomicIncrement(ctx, ports.CollectionMessages, "seq#a#b", "value", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}

func TestEntityStore_AtomicIncrementFloor(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()
	zero := 0

	_, err := store.Create(ctx, ports.CollectionVideos, ports.Document{"id": "v1", "likes": int64(1)})
	require.NoError(t, err)

	next, err := store.AtomicIncrement(ctx, ports.CollectionVideos, "v1", "likes", -1, &zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next)

	// A decrement below the floor is rejected and the current value returned.
	next, err = store.AtomicIncrement(ctx, ports.CollectionVideos, "v1", "likes", -1, &zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next)

	// With a floor the document must already exist.
	_, err = store.AtomicIncrement(ctx, ports.CollectionVideos, "missing", "likes", 1, &zero)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEntityStore_AtomicAppendToList(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	err := store.AtomicAppendToList(ctx, ports.CollectionVideos, "missing", "comments", ports.Document{"id": "c1"}, "commentCount")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Create(ctx, ports.CollectionVideos, ports.Document{"id": "v1"})
	require.NoError(t, err)

	require.NoError(t, store.AtomicAppendToList(ctx, ports.CollectionVideos, "v1", "comments", ports.Document{"id": "c1"}, "commentCount"))
	require.NoError(t, store.AtomicAppendToList(ctx, ports.CollectionVideos, "v1", "comments", ports.Document{"id": "c2"}, "commentCount"))

	doc, err := store.Get(ctx, ports.CollectionVideos, "v1")
	require.NoError(t, err)
	list, ok := doc["comments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), doc["commentCount"])
}

func TestEntityStore_QueryFilterSortPage(t *testing.T) {
	store := NewEntityStore()
	ctx := context.Background()

	for _, doc := range []ports.Document{
		{"id": "m1", "conversationId": "a#b", "seq": int64(2)},
		{"id": "m2", "conversationId": "a#b", "seq": int64(1)},
		{"id": "m3", "conversationId": "a#b", "seq": int64(3)},
		{"id": "m4", "conversationId": "a#c", "seq": int64(1)},
	} {
		_, err := store.Create(ctx, ports.CollectionMessages, doc)
		require.NoError(t, err)
	}

	docs, err := store.Query(ctx, ports.CollectionMessages,
		ports.Filter{"conversationId": "a#b"},
		ports.Sort{Field: "seq", Ascending: true},
		ports.Page{},
	)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "m2", docs[0]["id"])
	assert.Equal(t, "m1", docs[1]["id"])
	assert.Equal(t, "m3", docs[2]["id"])

	// Window into the sorted result.
	docs, err = store.Query(ctx, ports.CollectionMessages,
		ports.Filter{"conversationId": "a#b"},
		ports.Sort{Field: "seq", Ascending: true},
		ports.Page{Offset: 1, Limit: 1},
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "m1", docs[0]["id"])

	count, err := store.Count(ctx, ports.CollectionMessages, ports.Filter{"conversationId": "a#b"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
