package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	xdraw "golang.org/x/image/draw"

	"newsfeed/internal/ports"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MinWidth and MinHeight reject tiny images (tracking pixels, icons)
	// before any full download happens.
	MinWidth  = 100
	MinHeight = 100

	maxSide      = 96
	jpegQuality  = 85
	maxImageSize = 20 << 20
	probeBytes   = 64 << 10
)

// Processor downloads candidate images, transcodes them into fixed-size JPEG
// thumbnails, and persists them under a directory keyed by article id.
type Processor struct {
	dir    string
	client *http.Client
	logger *slog.Logger
}

var _ ports.ThumbnailStore = (*Processor)(nil)

// NewProcessor wires the thumbnail directory; the HTTP client defaults to a
// 10s bounded one.
func NewProcessor(dir string, client *http.Client, logger *slog.Logger) *Processor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Processor{dir: dir, client: client, logger: logger}
}

// Dir returns the configured storage directory.
func (p *Processor) Dir() string {
	return p.dir
}

// Process downloads, decodes, resizes, and persists the image, returning the
// serving path for the stored asset. On any failure no file is written, so a
// later pass can retry.
func (p *Processor) Process(ctx context.Context, imageURL string, articleID int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image host returned %s", resp.Status)
	}

	src, _, err := image.Decode(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := resize(flatten(src))

	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}

	name := fileName(articleID)
	if err := os.WriteFile(filepath.Join(p.dir, name), encoded.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}

	return "/thumbnails/" + name, nil
}

// Remove deletes the stored thumbnail for an article, if any.
func (p *Processor) Remove(articleID int64) error {
	err := os.Remove(filepath.Join(p.dir, fileName(articleID)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove thumbnail: %w", err)
	}
	return nil
}

// ProbeSize fetches just enough of the image to read its declared dimensions
// without downloading the full payload.
func (p *Processor) ProbeSize(ctx context.Context, imageURL string) (width, height int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("probe image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("image host returned %s", resp.Status)
	}

	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, probeBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

func fileName(articleID int64) string {
	return fmt.Sprintf("%d.jpg", articleID)
}

// flatten composites the image over a white background, guaranteeing a
// 3-channel result compatible with JPEG output.
func flatten(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	return dst
}

// resize shrinks (never enlarges) so the longer side fits within maxSide,
// preserving aspect ratio.
func resize(src *image.RGBA) *image.RGBA {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if w <= maxSide && h <= maxSide {
		return src
	}

	var tw, th int
	if w >= h {
		tw = maxSide
		th = h * maxSide / w
	} else {
		th = maxSide
		tw = w * maxSide / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
