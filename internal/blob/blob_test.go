package blob

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()

	store, err := NewDiskStore(t.TempDir(), "test-sign-secret", zap.NewNop().Sugar())
	require.NoError(t, err)
	return store
}

func TestStoreWritesFileUnderMediaKey(t *testing.T) {
	store := newTestStore(t)

	key, contentType, err := store.Store(strings.NewReader("hello"), "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", contentType)
	assert.Regexp(t, `^media/[0-9a-f-]{36}\.txt$`, key)

	path, err := store.Path(key)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStoreSniffsMissingContentType(t *testing.T) {
	store := newTestStore(t)

	// minimal PNG header
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	_, contentType, err := store.Store(strings.NewReader(string(png)), "pic", "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
}

func TestStoreDropsSuspiciousExtension(t *testing.T) {
	store := newTestStore(t)

	key, _, err := store.Store(strings.NewReader("x"), "../../etc/passwd", "text/plain")
	require.NoError(t, err)
	assert.Regexp(t, `^media/[0-9a-f-]{36}$`, key)
}

func TestSignedURLRoundTrip(t *testing.T) {
	store := newTestStore(t)

	key, _, err := store.Store(strings.NewReader("x"), "a.bin", "application/octet-stream")
	require.NoError(t, err)

	signed, err := store.SignedURL(key, time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/files/"+key, parsed.Path)

	expires, err := strconv.ParseInt(parsed.Query().Get("exp"), 10, 64)
	require.NoError(t, err)

	require.NoError(t, store.Verify(key, expires, parsed.Query().Get("sig")))
}

func TestVerifyRejectsExpiredURL(t *testing.T) {
	store := newTestStore(t)

	key, _, err := store.Store(strings.NewReader("x"), "a.bin", "application/octet-stream")
	require.NoError(t, err)

	signed, err := store.SignedURL(key, -time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	expires, err := strconv.ParseInt(parsed.Query().Get("exp"), 10, 64)
	require.NoError(t, err)

	assert.Error(t, store.Verify(key, expires, parsed.Query().Get("sig")))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	store := newTestStore(t)

	key, _, err := store.Store(strings.NewReader("x"), "a.bin", "application/octet-stream")
	require.NoError(t, err)

	expires := time.Now().Add(time.Minute).Unix()
	assert.Error(t, store.Verify(key, expires, "deadbeef"))
}

func TestPathRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Path("media/../secrets.txt")
	assert.Error(t, err)

	_, err = store.Path("/etc/passwd")
	assert.Error(t, err)
}
