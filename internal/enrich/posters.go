package enrich

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/haruapp/haru-server/internal/fetchcache"
	"github.com/haruapp/haru-server/internal/ratelimit"
)

const (
	// thumbSize is the target size for BlurHash computation. BlurHash is a
	// low-resolution placeholder, so a small thumbnail produces nearly
	// identical hashes at a fraction of the cost.
	thumbSize = 64

	// posterByteLimit caps how much of a poster response the decoder may
	// consume.
	posterByteLimit = 16 << 20

	probeTimeout = 15 * time.Second

	// Poster hosts are image CDNs, not rate-limited APIs, so the per-host
	// budget is generous.
	probeRPS   = 8.0
	probeBurst = 8
)

// PosterProber downloads poster images and computes their BlurHash
// placeholders. Hashes are cached by poster URL, so re-running enrichment
// only downloads art that changed.
type PosterProber struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	cache   *fetchcache.Cache
	logger  *slog.Logger
}

// ProberOptions configures a PosterProber.
type ProberOptions struct {
	// Cache holds computed hashes keyed by poster URL. Optional.
	Cache *fetchcache.Cache
	// Logger for probe diagnostics. Defaults to stderr.
	Logger *slog.Logger
}

// NewPosterProber creates a poster prober. Requests are rate limited per
// image host.
func NewPosterProber(opts ProberOptions) *PosterProber {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return &PosterProber{
		http:    &http.Client{Timeout: probeTimeout},
		limiter: ratelimit.New(probeRPS, probeBurst),
		cache:   opts.Cache,
		logger:  logger,
	}
}

// Close releases the prober's rate limiter.
func (p *PosterProber) Close() {
	p.limiter.Stop()
}

// BlurHash downloads the image at rawURL and returns its BlurHash string.
// Results are cached by URL when a cache is configured.
func (p *PosterProber) BlurHash(ctx context.Context, rawURL string) (string, error) {
	cacheKey := "blurhash:" + rawURL
	if p.cache != nil {
		if hash, ok := p.cache.Get(cacheKey); ok {
			return string(hash), nil
		}
	}

	img, err := p.fetchImage(ctx, rawURL)
	if err != nil {
		return "", err
	}

	// 4x3 components keep the hash around 30 characters while still
	// sketching the poster's composition.
	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(cacheKey, []byte(hash)); err != nil {
			p.logger.Warn("blurhash cache write failed", "url", rawURL, "error", err)
		}
	}

	return hash, nil
}

func (p *PosterProber) fetchImage(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse poster url: %w", err)
	}

	if err := p.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "haru-refresh/1.0")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch poster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch poster: status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, posterByteLimit))
	if err != nil {
		return nil, fmt.Errorf("decode poster: %w", err)
	}

	return img, nil
}

// thumbnail scales img down to thumbSize on its longer edge using
// nearest-neighbor sampling, which is plenty for a BlurHash input.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= thumbSize && h <= thumbSize {
		return img
	}

	dw, dh := thumbSize, max(1, h*thumbSize/w)
	if h > w {
		dw, dh = max(1, w*thumbSize/h), thumbSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := range dh {
		for x := range dw {
			dst.Set(x, y, img.At(bounds.Min.X+x*w/dw, bounds.Min.Y+y*h/dh))
		}
	}

	return dst
}
