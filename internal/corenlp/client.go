// Package corenlp is an HTTP client for an external annotation server that
// speaks concord's JSON engine protocol.
package corenlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/concord/pkg/concord/engine"
	"github.com/cognicore/concord/pkg/concord/flat"
)

// Endpoint paths below BaseURL.
const (
	PathTokens = "/v1/annotate/tokens"
	PathText   = "/v1/annotate/text"
)

// Client implements engine.Engine over HTTP.
type Client struct {
	BaseURL string
	Timeout time.Duration

	HTTPClient *http.Client
}

var _ engine.Engine = (*Client)(nil)

type textRequest struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

type tokensResponse struct {
	Sentences []*flat.Sentence `json:"sentences"`
	Error     *apiError        `json:"error"`
}

type textResponse struct {
	flat.Document
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
}

// AnnotateTokens sends pre-split tokens and returns one record per sentence.
func (c *Client) AnnotateTokens(ctx context.Context, req *engine.Request) ([]*flat.Sentence, error) {
	var payload tokensResponse
	if err := c.post(ctx, PathTokens, req, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("corenlp error: %s", payload.Error.Message)
	}
	return payload.Sentences, nil
}

// AnnotateText sends raw text for full annotation, coreference included.
func (c *Client) AnnotateText(ctx context.Context, language, text string) (*flat.Document, error) {
	var payload textResponse
	if err := c.post(ctx, PathText, textRequest{Language: language, Text: text}, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("corenlp error: %s", payload.Error.Message)
	}
	doc := payload.Document
	return &doc, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.BaseURL == "" {
		return fmt.Errorf("corenlp: base URL required")
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.BaseURL, "/")+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("corenlp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("corenlp: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("corenlp: decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}
