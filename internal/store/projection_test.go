package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fireguard/fireguard/internal/store"
)

var userSchema = store.Schema{
	Fields: map[string]string{
		"id":       "_id",
		"username": "username",
		"roles":    "roles",
	},
	DefaultLists: []string{"roles"},
}

func TestProject_RendersObjectIDAsString(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	out := store.Project(store.Document{"_id": oid, "username": "kari"}, userSchema)

	assert.Equal(t, oid.Hex(), out["id"])
	assert.Equal(t, "kari", out["username"])
}

func TestProject_OnlyMappedFields(t *testing.T) {
	t.Parallel()

	doc := store.Document{
		"_id":      primitive.NewObjectID(),
		"username": "kari",
		"password": "secret",
		"extra":    42,
	}
	out := store.Project(doc, userSchema)

	assert.Len(t, out, 3)
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "extra")
}

func TestProject_DefaultListWhenMissingOrNull(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  store.Document
	}{
		{name: "missing", doc: store.Document{"_id": "65f0c0ffee0000000000abcd"}},
		{name: "null", doc: store.Document{"_id": "65f0c0ffee0000000000abcd", "roles": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := store.Project(tt.doc, userSchema)
			assert.Equal(t, []any{}, out["roles"])
		})
	}
}

func TestProject_KeepsPresentList(t *testing.T) {
	t.Parallel()

	out := store.Project(store.Document{"roles": primitive.A{"Admin"}}, userSchema)
	assert.Equal(t, []string{"Admin"}, store.Strings(out["roles"]))
}

func TestParseID(t *testing.T) {
	t.Parallel()

	_, err := store.ParseID("not-an-id")
	assert.ErrorIs(t, err, store.ErrInvalidID)

	id := store.NewID()
	oid, err := store.ParseID(id)
	assert.NoError(t, err)
	assert.Equal(t, id, oid.Hex())
	assert.Len(t, id, 24)
}

func TestValueHelpers(t *testing.T) {
	t.Parallel()

	f, ok := store.Float(int32(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = store.Float("7")
	assert.False(t, ok)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got, ok := store.Time(primitive.NewDateTimeFromTime(ts))
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	got, ok = store.Time("2025-06-01T12:00:00Z")
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	assert.Equal(t, []string{}, store.Strings(nil))
	assert.Equal(t, []string{"a", "b"}, store.Strings([]any{"a", 1, "b"}))
}
