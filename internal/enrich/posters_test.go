package enrich

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruapp/haru-server/internal/fetchcache"
)

func testPoster() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 12))
	for y := range 12 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	return img
}

func TestPosterProber_BlurHash(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/png")
		require.NoError(t, png.Encode(w, testPoster()))
	}))
	defer server.Close()

	cache, err := fetchcache.Open(fetchcache.Options{
		Path:   t.TempDir(),
		TTL:    time.Minute,
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	defer cache.Close()

	prober := NewPosterProber(ProberOptions{Cache: cache, Logger: discardLogger()})
	defer prober.Close()

	hash, err := prober.BlurHash(context.Background(), server.URL+"/poster.png")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	again, err := prober.BlurHash(context.Background(), server.URL+"/poster.png")
	require.NoError(t, err)
	assert.Equal(t, hash, again)
	assert.Equal(t, int32(1), calls.Load(), "second hash must come from the cache")
}

func TestPosterProber_NonImageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a poster</html>"))
	}))
	defer server.Close()

	prober := NewPosterProber(ProberOptions{Logger: discardLogger()})
	defer prober.Close()

	_, err := prober.BlurHash(context.Background(), server.URL+"/poster.jpg")
	assert.ErrorContains(t, err, "decode poster")
}

func TestPosterProber_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	prober := NewPosterProber(ProberOptions{Logger: discardLogger()})
	defer prober.Close()

	_, err := prober.BlurHash(context.Background(), server.URL+"/gone.jpg")
	assert.ErrorContains(t, err, "status 404")
}

func TestThumbnail(t *testing.T) {
	wide := thumbnail(image.NewRGBA(image.Rect(0, 0, 640, 360)))
	assert.Equal(t, 64, wide.Bounds().Dx())
	assert.Equal(t, 36, wide.Bounds().Dy())

	tall := thumbnail(image.NewRGBA(image.Rect(0, 0, 100, 200)))
	assert.Equal(t, 32, tall.Bounds().Dx())
	assert.Equal(t, 64, tall.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, small, thumbnail(small))
}
