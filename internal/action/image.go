package action

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Bitmap formats accepted as image sources.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Data URI prefixes understood by the host.
const (
	PNGDataURIPrefix = "data:image/png;base64,"
	SVGDataURIPrefix = "data:image/svg+xml;charset=utf8,"
)

const (
	// maxImageBytes caps a single image source.
	maxImageBytes = 8 << 20

	defaultFetchTimeout = 10 * time.Second
)

// IsDataURI reports whether src is already an inline image.
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}

// SVGDataURI wraps SVG markup in a percent-encoded data URI.
func SVGDataURI(svg string) string {
	return SVGDataURIPrefix + strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
}

// PNGDataURI base64-encodes PNG bytes into a data URI.
func PNGDataURI(pngData []byte) string {
	return PNGDataURIPrefix + base64.StdEncoding.EncodeToString(pngData)
}

// ImageLoader turns image sources into data URIs the host can display.
//
// Sources may be plugin-relative paths (resolved against the base
// directory), absolute paths, or http(s) URLs. Bitmaps are decoded and
// re-encoded as PNG; SVG documents are passed through as SVG data URIs.
type ImageLoader struct {
	baseDir string
	client  *http.Client
}

// NewImageLoader creates a loader resolving relative paths against baseDir.
// A nil client uses a client with a 10s timeout.
func NewImageLoader(baseDir string, client *http.Client) *ImageLoader {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &ImageLoader{baseDir: baseDir, client: client}
}

// Load reads src and returns it as a data URI. Data URIs are returned
// unchanged.
//
// Returns:
//   - string: The data URI
//   - error: Wraps ErrAssetLoad when the source cannot be read or decoded
func (l *ImageLoader) Load(ctx context.Context, src string) (string, error) {
	if IsDataURI(src) {
		return src, nil
	}
	if src == "" {
		return "", fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}

	data, err := l.read(ctx, src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrAssetLoad, src, err)
	}

	if looksLikeSVG(data) {
		return SVGDataURI(string(data)), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: decoding %s: %w", ErrAssetLoad, src, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encoding %s: %w", ErrAssetLoad, src, err)
	}
	return PNGDataURI(buf.Bytes()), nil
}

func (l *ImageLoader) read(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return l.fetch(ctx, src)
	}

	path := strings.TrimPrefix(src, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, filepath.FromSlash(strings.TrimPrefix(path, "/")))
	}

	f, err := os.Open(path) //nolint:gosec // Image paths come from plugin configuration
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return io.ReadAll(io.LimitReader(f, maxImageBytes))
}

func (l *ImageLoader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Body fully consumed below

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// looksLikeSVG sniffs for an SVG document in the first bytes of data.
func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}
