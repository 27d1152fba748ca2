package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cipherrelay/internal/server/models"
)

func user(name, key string, s models.SessionID) models.User {
	return models.User{Username: name, PublicKey: key, Session: s}
}

func TestRegister_LastWriterWins(t *testing.T) {
	r := New()

	r.Register(user("alice", "K1", "s1"))
	r.Register(user("alice", "K2", "s2"))
	r.Register(user("alice", "K3", "s3"))

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, user("alice", "K3", "s3"), got)
	assert.Equal(t, []string{"alice"}, r.ListUsernames())
}

func TestRegister_ChangeVersions(t *testing.T) {
	r := New()

	c1 := r.Register(user("alice", "K", "s1"))
	c2 := r.Register(user("bob", "K", "s2"))

	assert.Equal(t, uint64(1), c1.Version)
	assert.Equal(t, []string{"alice"}, c1.Usernames)
	assert.Equal(t, uint64(2), c2.Version)
	assert.Equal(t, []string{"alice", "bob"}, c2.Usernames)
	assert.Equal(t, c2, r.Current())
}

func TestUnregisterBySession_RemovesAllOwnedNames(t *testing.T) {
	r := New()
	r.Register(user("alice", "K", "s1"))
	r.Register(user("alt", "K", "s1"))
	r.Register(user("bob", "K", "s2"))

	removed, change := r.UnregisterBySession("s1")

	assert.Equal(t, []string{"alice", "alt"}, removed)
	assert.Equal(t, []string{"bob"}, change.Usernames)
	assert.Equal(t, []string{"bob"}, r.ListUsernames())
	_, ok := r.Lookup("alice")
	assert.False(t, ok)
}

func TestUnregisterBySession_StaleDisconnectKeepsNewerRecord(t *testing.T) {
	r := New()
	r.Register(user("alice", "old", "s1"))
	r.Register(user("alice", "new", "s2"))

	removed, change := r.UnregisterBySession("s1")

	assert.Empty(t, removed)
	assert.Equal(t, uint64(2), change.Version, "no mutation, no version bump")
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, models.SessionID("s2"), got.Session)
}

func TestUnregisterBySession_UnknownSession(t *testing.T) {
	r := New()
	removed, change := r.UnregisterBySession("nope")
	assert.Empty(t, removed)
	assert.Equal(t, uint64(0), change.Version)
	assert.Empty(t, change.Usernames)
}

func TestSnapshotPublicKeys_IsACopy(t *testing.T) {
	r := New()
	r.Register(user("alice", "KA", "s1"))
	r.Register(user("bob", "KB", "s2"))

	first := r.SnapshotPublicKeys()
	second := r.SnapshotPublicKeys()
	assert.Equal(t, map[string]string{"alice": "KA", "bob": "KB"}, first)
	assert.Equal(t, first, second)

	first["mallory"] = "KM"
	_, ok := r.Lookup("mallory")
	assert.False(t, ok)
}

func TestConcurrentRegisterAndDisconnect(t *testing.T) {
	r := New()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := models.SessionID(fmt.Sprintf("s%d", i))
			for j := 0; j < 100; j++ {
				r.Register(user("shared", s.String(), s))
				r.Register(user(fmt.Sprintf("own-%d", i), "K", s))
				if u, ok := r.Lookup("shared"); ok {
					// Key and session always come from the same registration.
					if string(u.Session) != u.PublicKey {
						t.Errorf("torn record: %+v", u)
					}
				}
				_ = r.SnapshotPublicKeys()
			}
			r.UnregisterBySession(s)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, r.ListUsernames())
	assert.Empty(t, r.Current().Usernames)
}
