package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// IconFetcher downloads and caches the tracked token's icon for the
// display client. The image URI comes from the token metadata payload.
type IconFetcher struct {
	basePath string
	client   *http.Client
}

// NewIconFetcher creates a new IconFetcher storing icons under dir.
func NewIconFetcher(dir string) (*IconFetcher, error) {
	if dir == "" {
		dir = filepath.Join("assets", "icons")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconFetcher{
		basePath: dir,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// FetchIcon downloads the icon for a mint if it isn't cached yet.
// Images are resized to 64x64 for consistent display. Returns the
// local file path on success.
func (f *IconFetcher) FetchIcon(mint, imageURL string) (string, error) {
	// Security: sanitize mint to prevent path traversal
	safeMint := sanitizeMint(mint)
	if safeMint == "" {
		return "", fmt.Errorf("invalid mint: %s", mint)
	}
	if imageURL == "" {
		return "", fmt.Errorf("no image URL for mint %s", mint)
	}

	filePath := filepath.Join(f.basePath, strings.ToLower(safeMint)+".png")

	// Cache hit
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	resp, err := f.client.Get(imageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := imaging.Resize(srcImg, 64, 64, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// IconPath returns the local path for a mint's icon.
func (f *IconFetcher) IconPath(mint string) string {
	return filepath.Join(f.basePath, strings.ToLower(sanitizeMint(mint))+".png")
}

func sanitizeMint(mint string) string {
	res := make([]rune, 0, len(mint))
	for _, r := range mint {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
