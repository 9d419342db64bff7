package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), "http://localhost:8080/", zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestPut(t *testing.T) {
	svc := newTestService(t)

	obj, err := svc.Put(BucketBanners, "Hero.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, BucketBanners, obj.Bucket)
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "http://localhost:8080/storage/banners/"+obj.Key, obj.URL)

	data, err := os.ReadFile(filepath.Join(svc.Root(), BucketBanners, obj.Key))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestPut_Rejections(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Put("secrets", "a.png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnknownBucket)

	_, err = svc.Put(BucketAvatars, "script.sh", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Put(BucketAvatars, "big.jpg", bytes.NewReader(make([]byte, MaxObjectSize+1)))
	require.ErrorIs(t, err, ErrObjectTooLarge)

	entries, err := os.ReadDir(filepath.Join(svc.Root(), BucketAvatars))
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not leave files behind")
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	obj, err := svc.Put(BucketAvatars, "me.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(BucketAvatars, obj.Key))
	require.NoError(t, svc.Delete(BucketAvatars, obj.Key))

	require.ErrorIs(t, svc.Delete(BucketAvatars, "../escape.png"), ErrInvalidKey)
}
