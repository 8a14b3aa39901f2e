// Package images generates scene images through a Pollinations-style HTTP
// endpoint: the prompt is encoded into the URL and the response body is the
// image itself.
package images

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Client generates images over HTTP.
type Client struct {
	BaseURL string
	Model   string
	client  *http.Client

	retryDelay time.Duration
}

// NewClient creates an image generation client.
func NewClient(baseURL, model string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Model:      model,
		client:     &http.Client{Timeout: 60 * time.Second},
		retryDelay: 3 * time.Second,
	}
}

// aspectDimensions maps an aspect ratio label to pixel dimensions.
func aspectDimensions(aspect string) (width, height int) {
	switch aspect {
	case "16:9":
		return 1920, 1080
	case "1:1":
		return 1080, 1080
	default: // vertical shorts
		return 1080, 1920
	}
}

// Generate fetches one image for a prompt and returns its bytes. The seed
// keeps regeneration deterministic per scene.
func (c *Client) Generate(ctx context.Context, prompt, aspect string, seed int) ([]byte, error) {
	width, height := aspectDimensions(aspect)
	imageURL := fmt.Sprintf(
		"%s/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		c.BaseURL, url.PathEscape(prompt), width, height, c.Model, seed,
	)

	// The endpoint occasionally times out; retry a few times.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		data, err := c.download(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		log.Printf("Image attempt %d failed: %v", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.retryDelay):
		}
	}
	return nil, fmt.Errorf("image generation failed after 3 attempts: %w", lastErr)
}

// GenerateToDir generates one image per prompt, writing each to a uniquely
// named file under dir. Paths are returned in prompt order.
func (c *Client) GenerateToDir(ctx context.Context, prompts []string, aspect, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images directory: %w", err)
	}

	paths := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		data, err := c.Generate(ctx, prompt, aspect, i*42+7)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("scene_%02d_%s.jpg", i+1, uuid.NewString()[:8]))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("writing scene %d: %w", i+1, err)
		}
		log.Printf("Generated image %d/%d: %s", i+1, len(prompts), path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "liturgycast/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from image endpoint", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// A tiny payload is an error page, not an image.
	if len(data) < 1024 {
		return nil, fmt.Errorf("response too small to be an image (%d bytes)", len(data))
	}
	return data, nil
}
