// Package ai wraps the generative endpoints used by the editor: field text,
// slide images and whole-deck outlines.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"slidedeck/internal/slide"
)

// ErrMalformed reports a response without usable content.
var ErrMalformed = errors.New("ai: malformed response")

const attempts = 3

// Image is generated image data.
type Image struct {
	Data     []byte
	MIMEType string
}

// Client is a thin wrapper around the genai client.
type Client struct {
	cli        *genai.Client
	textModel  string
	imageModel string
}

// New returns a client for the Gemini API.
func New(ctx context.Context, apiKey, textModel, imageModel string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{cli: cli, textModel: textModel, imageModel: imageModel}, nil
}

func (c *Client) Name() string { return "Gemini:" + c.textModel }

// GenerateText returns plain text for prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	txt, err := c.generate(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(txt), nil
}

// GenerateImage renders prompt into one image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	log.Printf("[ai] image request: %d bytes", len(prompt))
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.cli.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{NumberOfImages: 1})
		switch {
		case err != nil:
			lastErr = err
		case len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0:
			return Image{}, ErrMalformed
		default:
			img := resp.GeneratedImages[0].Image
			mime := img.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return Image{Data: img.ImageBytes, MIMEType: mime}, nil
		}
		if !backoff(ctx, attempt) {
			break
		}
	}
	return Image{}, lastErr
}

// GenerateOutline asks for a deck outline in JSON mode.
func (c *Client) GenerateOutline(ctx context.Context, topic string, slides int) (slide.Deck, error) {
	raw, err := c.generate(ctx, OutlinePrompt(topic, slides), &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return slide.Deck{}, err
	}
	return ParseOutline([]byte(raw))
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	log.Printf("[ai] text request: %d bytes", len(prompt))
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := c.cli.Models.GenerateContent(ctx, c.textModel,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			cfg,
		)
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0:
			return "", ErrMalformed
		default:
			var b strings.Builder
			for _, p := range resp.Candidates[0].Content.Parts {
				b.WriteString(p.Text)
			}
			if strings.TrimSpace(b.String()) == "" {
				return "", ErrMalformed
			}
			return b.String(), nil
		}
		if !backoff(ctx, attempt) {
			break
		}
	}
	return "", lastErr
}

// backoff sleeps before the next attempt. It reports false when ctx ended.
func backoff(ctx context.Context, attempt int) bool {
	t := time.NewTimer(time.Duration(300*(1<<attempt)) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
