package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	now := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	key := NewObjectKey("apartments/5", "My Photo!.JPG", "image/jpeg", now)

	assert.True(t, strings.HasPrefix(key, "apartments/5/2024/03/07/"), key)
	assert.True(t, strings.HasSuffix(key, "_My_Photo_.jpg"), key)
}

func TestNewObjectKey_ExtensionFromMime(t *testing.T) {
	key := NewObjectKey("", "blob", "image/webp", time.Now())
	assert.True(t, strings.HasSuffix(key, "_blob.webp"), key)
}

func TestLocal_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "/static/uploads")
	ctx := context.Background()

	url, err := store.Put(ctx, "apartments/1/a.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/apartments/1/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "apartments", "1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "apartments/1/a.png"))
	_, err = os.Stat(filepath.Join(dir, "apartments", "1", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "apartments/1/a.png"))
}

func TestLocal_RejectsTraversal(t *testing.T) {
	store := NewLocal(t.TempDir(), "")

	_, err := store.Put(context.Background(), "../escape.png", strings.NewReader("x"), 1, "image/png")
	assert.Error(t, err)

	_, err = store.Put(context.Background(), "  ", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestNewMinio_Validation(t *testing.T) {
	_, err := NewMinio(MinioConfig{Bucket: "b"}, nil)
	assert.Error(t, err)

	_, err = NewMinio(MinioConfig{Endpoint: "localhost:9000"}, nil)
	assert.Error(t, err)

	m, err := NewMinio(MinioConfig{Endpoint: "localhost:9000", Bucket: "imgs", AccessKey: "a", SecretKey: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/imgs/x/y.png", m.objectURL("x/y.png"))
}

// fakeS3 answers the path-style requests an upload makes against an existing
// bucket. Bucket checks fail while denyBucket is set.
type fakeS3 struct {
	mu           sync.Mutex
	denyBucket   bool
	bucketChecks int
	objects      []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)

	path := strings.Trim(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodHead && path == "imgs":
		f.bucketChecks++
		if f.denyBucket {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "imgs/"):
		f.objects = append(f.objects, strings.TrimPrefix(path, "imgs/"))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bucketChecks, append([]string(nil), f.objects...)
}

func newFakeMinio(t *testing.T, f *fakeS3) *Minio {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	m, err := NewMinio(MinioConfig{
		Endpoint:  srv.URL,
		Bucket:    "imgs",
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
	}, nil)
	require.NoError(t, err)
	return m
}

func TestMinio_CancelledUploadDoesNotPoisonBucket(t *testing.T) {
	f := &fakeS3{}
	m := newFakeMinio(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Put(ctx, "apartments/1/a.png", strings.NewReader("png"), 3, "image/png")
	require.Error(t, err)

	url, err := m.Put(context.Background(), "apartments/1/b.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, m.objectURL("apartments/1/b.png"), url)
	checks, objects := f.snapshot()
	assert.Equal(t, 1, checks)
	assert.Equal(t, []string{"apartments/1/b.png"}, objects)
}

func TestMinio_FailedBucketCheckIsRetried(t *testing.T) {
	f := &fakeS3{denyBucket: true}
	m := newFakeMinio(t, f)

	_, err := m.Put(context.Background(), "apartments/1/a.png", strings.NewReader("png"), 3, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check bucket")
	_, objects := f.snapshot()
	assert.Empty(t, objects)

	f.mu.Lock()
	f.denyBucket = false
	f.mu.Unlock()

	_, err = m.Put(context.Background(), "apartments/1/a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	_, err = m.Put(context.Background(), "apartments/1/c.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)

	checks, objects := f.snapshot()
	assert.Equal(t, 2, checks)
	assert.Equal(t, []string{"apartments/1/a.png", "apartments/1/c.png"}, objects)
}
