package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DiskStore keeps uploaded files on the local filesystem under keys shaped
// like media/<uuid><ext>, and issues time-limited HMAC-signed URLs for
// retrieving them through the /files endpoint.
type DiskStore struct {
	dir        string
	signSecret []byte
	sugar      *zap.SugaredLogger
}

// keys never contain path separators beyond the fixed media/ prefix
var keyPattern = regexp.MustCompile(`^media/[0-9a-f-]{36}(\.[A-Za-z0-9]{1,10})?$`)

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

func NewDiskStore(dir string, signSecret string, sugar *zap.SugaredLogger) (*DiskStore, error) {
	if signSecret == "" {
		return nil, fmt.Errorf("file sign secret must not be empty")
	}
	if err := os.MkdirAll(filepath.Join(dir, "media"), 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, signSecret: []byte(signSecret), sugar: sugar}, nil
}

// Store streams the upload to disk and returns the generated object key plus
// the effective content type. When the client supplied no usable content type
// it is sniffed from the bytes.
func (s *DiskStore) Store(r io.Reader, fileName string, contentType string) (string, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	key := fmt.Sprintf("media/%s%s", uuid.New().String(), sanitizeExt(fileName))

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", err
	}

	s.sugar.Debugf("Stored %d bytes of [%s] as [%s]", len(data), fileName, key)
	return key, contentType, nil
}

// SignedURL returns a relative URL for the file that is valid for ttl.
func (s *DiskStore) SignedURL(key string, ttl time.Duration) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("malformed blob key [%s]", key)
	}

	expires := time.Now().UTC().Add(ttl).Unix()
	sig := s.sign(key, expires)

	return fmt.Sprintf("/files/%s?exp=%d&sig=%s", key, expires, url.QueryEscape(sig)), nil
}

// Verify checks a signed URL's expiry and signature for the given key.
func (s *DiskStore) Verify(key string, expires int64, sig string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("malformed blob key [%s]", key)
	}
	if time.Now().UTC().Unix() > expires {
		return fmt.Errorf("signed URL expired")
	}
	if !hmac.Equal([]byte(s.sign(key, expires)), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Path resolves a key to its on-disk location. The key is validated against
// the generated shape, so no client-supplied path can escape the files dir.
func (s *DiskStore) Path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("malformed blob key [%s]", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func (s *DiskStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.signSecret)
	mac.Write([]byte(key))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func sanitizeExt(fileName string) string {
	ext := filepath.Ext(fileName)
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
