package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

func testStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	info := ipts.DeviceInfo{Vendor: 0x045E, Product: 0x0C1A, BufferSize: 7485}

	meta := &ipts.Metadata{}
	meta.Size.Rows = 44
	meta.Size.Columns = 64
	meta.Transform.XX = -1

	id, err := store.CreateSession(ctx, "/dev/hidraw0", info, meta)
	require.NoError(t, err)
	require.NotZero(t, id)

	sess, err := store.Session(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "/dev/hidraw0", sess.Device)
	assert.Equal(t, info, sess.Info)
	require.NotNil(t, sess.Metadata)
	assert.Equal(t, uint32(64), sess.Metadata.Size.Columns)
	assert.Equal(t, float32(-1), sess.Metadata.Transform.XX)
	assert.False(t, sess.StartedAt.IsZero())
}

func TestSessionWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	id, err := store.CreateSession(ctx, "/dev/hidraw1", ipts.DeviceInfo{}, nil)
	require.NoError(t, err)

	sess, err := store.Session(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Nil(t, sess.Metadata)
}

func TestSessionMissing(t *testing.T) {
	store := testStore(t)

	sess, err := store.Session(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestFrames(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	id, err := store.CreateSession(ctx, "/dev/hidraw0", ipts.DeviceInfo{}, nil)
	require.NoError(t, err)

	want := [][]byte{
		{0x40, 0x01, 0x02},
		{0x40, 0x03},
		{0x40, 0x04, 0x05, 0x06},
	}
	for _, frame := range want {
		require.NoError(t, store.AppendFrame(ctx, id, frame))
	}

	// Frames of another session must not leak in.
	other, err := store.CreateSession(ctx, "/dev/hidraw1", ipts.DeviceInfo{}, nil)
	require.NoError(t, err)
	require.NoError(t, store.AppendFrame(ctx, other, []byte{0xFF}))

	it, err := store.Frames(ctx, id)
	require.NoError(t, err)
	defer it.Close()

	var got [][]byte
	for it.Next() {
		got = append(got, append([]byte(nil), it.Data()...))
	}
	require.NoError(t, it.Err())

	assert.Equal(t, want, got)
}

func TestSessionsOrder(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	first, err := store.CreateSession(ctx, "/dev/hidraw0", ipts.DeviceInfo{}, nil)
	require.NoError(t, err)
	second, err := store.CreateSession(ctx, "/dev/hidraw0", ipts.DeviceInfo{}, nil)
	require.NoError(t, err)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, second, sessions[1].ID)
}
