// Package generate talks to the external document/audio generation service.
// The pipeline only depends on the Service contract: every operation either
// returns a URL (or text) or a classified error.
package generate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"

	"showrunner/internal/faults"
)

// Service is the black-box generation contract the step executors consume.
type Service interface {
	// Transcribe produces a transcript document for the given media and
	// returns its URL.
	Transcribe(ctx context.Context, mediaURL string) (string, error)
	// CreateDocument stores a rendered document and returns its URL.
	CreateDocument(ctx context.Context, title, body string) (string, error)
	// Enhance rewrites a document body. Callers treat a failure here as
	// optional polish, not a step failure.
	Enhance(ctx context.Context, body string) (string, error)
	// Summarize produces a recap document from a source document URL.
	Summarize(ctx context.Context, sourceURL string) (string, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient builds a client against the generation API. Calls are throttled
// so a large sweep cannot exhaust the provider's quota.
func NewClient(baseURL, token string) *Client {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetTimeout(2 * time.Minute)
	if token != "" {
		c.SetAuthToken(token)
	}

	return &Client{
		http:    c,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

type generateRequest struct {
	Kind  string `json:"kind"`
	Input string `json:"input"`
	Title string `json:"title,omitempty"`
}

type generateResponse struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

func (c *Client) Transcribe(ctx context.Context, mediaURL string) (string, error) {
	out, err := c.generate(ctx, generateRequest{Kind: "transcript", Input: mediaURL})
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) CreateDocument(ctx context.Context, title, body string) (string, error) {
	out, err := c.generate(ctx, generateRequest{Kind: "document", Title: title, Input: body})
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) Enhance(ctx context.Context, body string) (string, error) {
	out, err := c.generate(ctx, generateRequest{Kind: "enhance", Input: body})
	if err != nil {
		return "", err
	}
	return out.Body, nil
}

func (c *Client) Summarize(ctx context.Context, sourceURL string) (string, error) {
	out, err := c.generate(ctx, generateRequest{Kind: "recap", Input: sourceURL})
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) generate(ctx context.Context, req generateRequest) (*generateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, faults.Transient(err)
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/generate")
	if err != nil {
		return nil, faults.Transient(fmt.Errorf("generation request %q failed: %w", req.Kind, err))
	}

	switch {
	case resp.StatusCode() >= 500:
		return nil, faults.Transient(fmt.Errorf("generation service %q returned %d", req.Kind, resp.StatusCode()))
	case resp.StatusCode() >= 400:
		return nil, faults.Permanent(fmt.Errorf("generation service rejected %q input: %d %s", req.Kind, resp.StatusCode(), resp.String()))
	}

	if out.URL == "" && out.Body == "" {
		return nil, faults.Transient(fmt.Errorf("generation service returned an empty %q result", req.Kind))
	}
	return &out, nil
}
