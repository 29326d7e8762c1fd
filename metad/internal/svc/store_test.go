package svc

import (
	"crypto/sha1"
	"os"
	"path/filepath"
	"testing"

	"metabay/common/bencode"
	"metabay/common/bittorrent"
	"metabay/torrentdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestTorrent encodes a single-file metadata payload and returns
// the matching info hash.
func buildTestTorrent(t *testing.T, name string, length int) ([]byte, []byte) {
	t.Helper()
	info := map[string]any{
		"name":         name,
		"length":       length,
		"piece length": 262144,
		"pieces":       []byte("01234567890123456789"),
	}
	encodedInfo, err := bencode.BEncode(info)
	require.NoError(t, err)
	encodedMeta, err := bencode.BEncode(map[string]any{
		"info":     info,
		"announce": "udp://tracker.example.com:6969",
	})
	require.NoError(t, err)
	sum := sha1.Sum([]byte(encodedInfo))
	return sum[:], []byte(encodedMeta)
}

func newTestStore(t *testing.T) (*TorrentStore, torrentdb.TorrentDB) {
	t.Helper()
	dir := t.TempDir()
	db, err := torrentdb.NewBoltDB(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTorrentStore(filepath.Join(dir, "torrents"), db, bittorrent.NewClassifier()), db
}

func TestTorrentStore_roundTrip(t *testing.T) {
	store, db := newTestStore(t)
	infoHash, metadata := buildTestTorrent(t, "distro.iso", 4096)

	record, err := store.Save(infoHash, metadata)
	require.NoError(t, err)
	assert.Equal(t, "distro.iso", record.Name)
	assert.Equal(t, int64(4096), record.Length)
	assert.Equal(t, 1, record.NumFiles)
	assert.Equal(t, "software", record.Category)
	assert.Equal(t, torrentdb.StatusUnknown, record.Status)

	path, ok := store.Find(infoHash)
	require.True(t, ok)
	got, ok := store.Read(path)
	require.True(t, ok)
	assert.Equal(t, metadata, got)

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTorrentStore_findUnknown(t *testing.T) {
	store, _ := newTestStore(t)
	_, ok := store.Find(make([]byte, 20))
	assert.False(t, ok)
}

func TestTorrentStore_staleIndexEntry(t *testing.T) {
	store, _ := newTestStore(t)
	infoHash, metadata := buildTestTorrent(t, "a.txt", 1)
	_, err := store.Save(infoHash, metadata)
	require.NoError(t, err)

	path, ok := store.Find(infoHash)
	require.True(t, ok)
	require.NoError(t, os.Remove(path))

	_, ok = store.Find(infoHash)
	assert.False(t, ok)
}

func TestTorrentStore_duplicateSave(t *testing.T) {
	store, _ := newTestStore(t)
	infoHash, metadata := buildTestTorrent(t, "dup.txt", 10)

	first, err := store.Save(infoHash, metadata)
	require.NoError(t, err)
	second, err := store.Save(infoHash, metadata)
	require.NoError(t, err)

	// The second copy lands under a disambiguated name, no overwrite.
	assert.NotEqual(t, first.TorrentName, second.TorrentName)
	assert.Contains(t, second.TorrentName, first.TorrentName)
	for _, name := range []string{first.TorrentName, second.TorrentName} {
		data, err := os.ReadFile(filepath.Join(first.TorrentDir, name))
		require.NoError(t, err)
		assert.True(t, bittorrent.VerifyInfoHash(infoHash, data))
	}
}

func TestTorrentStore_readBounds(t *testing.T) {
	store, _ := newTestStore(t)
	dir := t.TempDir()

	exact := filepath.Join(dir, "exact")
	require.NoError(t, os.WriteFile(exact, make([]byte, bittorrent.MaxMetadataSize), 0644))
	_, ok := store.Read(exact)
	assert.True(t, ok)

	over := filepath.Join(dir, "over")
	require.NoError(t, os.WriteFile(over, make([]byte, bittorrent.MaxMetadataSize+1), 0644))
	_, ok = store.Read(over)
	assert.False(t, ok)

	_, ok = store.Read(filepath.Join(dir, "missing"))
	assert.False(t, ok)
}

func TestTorrentStore_remove(t *testing.T) {
	store, db := newTestStore(t)
	infoHash, metadata := buildTestTorrent(t, "gone.txt", 5)
	record, err := store.Save(infoHash, metadata)
	require.NoError(t, err)

	require.NoError(t, store.Remove(infoHash))
	_, ok := store.Find(infoHash)
	assert.False(t, ok)
	_, err = os.Stat(filepath.Join(record.TorrentDir, record.TorrentName))
	assert.True(t, os.IsNotExist(err))

	count, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Removing a record whose file is already gone still drops the
	// index entry.
	infoHash2, metadata2 := buildTestTorrent(t, "b.txt", 5)
	record2, err := store.Save(infoHash2, metadata2)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(record2.TorrentDir, record2.TorrentName)))
	assert.NoError(t, store.Remove(infoHash2))
}

func TestTorrentStore_updateHealth(t *testing.T) {
	store, db := newTestStore(t)
	infoHash, metadata := buildTestTorrent(t, "h.txt", 5)
	_, err := store.Save(infoHash, metadata)
	require.NoError(t, err)

	require.NoError(t, store.UpdateHealth(infoHash, 10, 3, torrentdb.StatusGood))
	record, err := db.Get(infoHash)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), record.Seeders)
	assert.Equal(t, torrentdb.StatusGood, record.Status)
	assert.NotNil(t, record.LastCheck)
	assert.Equal(t, 0, record.RetryCount)

	require.NoError(t, store.UpdateHealth(infoHash, 0, 0, torrentdb.StatusDead))
	record, err = db.Get(infoHash)
	require.NoError(t, err)
	assert.Equal(t, 1, record.RetryCount)
}
