package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mterelay/internal/domain"
	"mterelay/internal/engine"
	"mterelay/internal/store"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, st := engine.New("", "")
	require.Equal(t, domain.StatusSuccess, st)
	return e
}

func TestRepository_BeforeInit(t *testing.T) {
	ctx := context.Background()
	r := store.NewRepository(newEngine(t), store.NewMemoryMedium(), store.NewMemoryMedium(), store.Options{})

	err := r.Write(ctx, "a", "b", false)
	require.True(t, domain.IsKind(err, domain.KindRepositoryNotInitialized))
	_, err = r.Read(ctx, "a", true)
	require.True(t, domain.IsKind(err, domain.KindRepositoryNotInitialized))
	err = r.Remove(ctx, "a", false)
	require.True(t, domain.IsKind(err, domain.KindRepositoryNotInitialized))
	require.Nil(t, r.Seed())
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	session := store.NewMemoryMedium()
	r := store.NewRepository(newEngine(t), session, store.NewMemoryMedium(), store.Options{})
	require.NoError(t, r.Init(ctx))
	require.NoError(t, r.Init(ctx))

	for _, v := range []string{"", "plain", "héllo, 世界 🚀"} {
		for _, persistent := range []bool{false, true} {
			require.NoError(t, r.Write(ctx, "k", v, persistent))
			got, err := r.Read(ctx, "k", persistent)
			require.NoError(t, err)
			require.Equal(t, v, got)
		}
	}

	// Stored values are concealed.
	raw, ok, err := session.Get(ctx, store.DefaultCategory+"/k")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, string(raw), "世界")

	require.NoError(t, r.Remove(ctx, "k", false))
	_, err = r.Read(ctx, "k", false)
	require.True(t, domain.IsKind(err, domain.KindNotFound))
	require.NoError(t, r.Remove(ctx, "never-written", true))
}

func TestRepository_MediaAreSeparate(t *testing.T) {
	ctx := context.Background()
	r := store.NewRepository(newEngine(t), store.NewMemoryMedium(), store.NewMemoryMedium(), store.Options{})
	require.NoError(t, r.Init(ctx))

	require.NoError(t, r.Write(ctx, "only-session", "x", false))
	_, err := r.Read(ctx, "only-session", true)
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRepository_FreshEntropyCannotReadOldEntries(t *testing.T) {
	ctx := context.Background()
	durable := store.NewMemoryMedium()

	r1 := store.NewRepository(newEngine(t), store.NewMemoryMedium(), durable, store.Options{})
	require.NoError(t, r1.Init(ctx))
	require.NoError(t, r1.Write(ctx, "k", "v", true))

	r2 := store.NewRepository(newEngine(t), store.NewMemoryMedium(), durable, store.Options{})
	require.NoError(t, r2.Init(ctx))
	_, err := r2.Read(ctx, "k", true)
	require.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRepository_BoltReopenWithSeed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")
	seedPath := filepath.Join(dir, "seed.enc")

	db, err := store.OpenBoltMedium(dbPath)
	require.NoError(t, err)
	r1 := store.NewRepository(newEngine(t), store.NewMemoryMedium(), db, store.Options{Category: "cat"})
	require.NoError(t, r1.Init(ctx))
	require.NoError(t, r1.Write(ctx, "pairs", "p1,p2", true))
	require.NoError(t, store.SaveSeed(seedPath, "pw", *r1.Seed()))
	require.NoError(t, db.Close())

	seed, err := store.LoadSeed(seedPath, "pw")
	require.NoError(t, err)
	require.NotNil(t, seed)

	db, err = store.OpenBoltMedium(dbPath)
	require.NoError(t, err)
	defer db.Close()
	r2 := store.NewRepository(newEngine(t), store.NewMemoryMedium(), db, store.Options{Category: "cat", Seed: seed})
	require.NoError(t, r2.Init(ctx))
	got, err := r2.Read(ctx, "pairs", true)
	require.NoError(t, err)
	require.Equal(t, "p1,p2", got)
}

func TestSeed_WrongPassphraseAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.enc")

	s, err := store.LoadSeed(path, "pw")
	require.NoError(t, err)
	require.Nil(t, s)

	require.NoError(t, store.SaveSeed(path, "correct", store.Seed{Entropy: []byte{1, 2, 3}, Nonce: "2610181200000000"}))
	_, err = store.LoadSeed(path, "wrong")
	require.Error(t, err)
}

func TestBoltMedium_CanceledContext(t *testing.T) {
	db, err := store.OpenBoltMedium(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	require.Error(t, db.Put(ctx, "a/b", []byte("v")))
}
