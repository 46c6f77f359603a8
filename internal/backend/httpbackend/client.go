// Package httpbackend implements the VariantFull GenerationBackend: a
// real network-backed engine talking to an OpenAI-compatible chat +
// embeddings HTTP API. Grounded on the reference backend's
// inference/engine/oaihttp client — same tuned transport, same
// base-URL/path/timeout config shape — narrowed to the analyze/rewrite/
// embed verbs this pipeline needs instead of a general chat surface.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/platform/apierr"
)

// Config configures a Backend.
type Config struct {
	BaseURL             string
	APIKey              string
	ChatCompletionsPath string
	EmbeddingsPath      string
	Model               string
	Lang                string
	ResidentMiB         int
	Timeout             time.Duration
}

// Backend is an HTTP-backed GenerationBackend.
type Backend struct {
	cfg    Config
	client *http.Client
}

// New constructs an HTTP backend. baseURL and model are required.
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("httpbackend: base url required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("httpbackend: model required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.ChatCompletionsPath == "" {
		cfg.ChatCompletionsPath = "/v1/chat/completions"
	}
	if cfg.EmbeddingsPath == "" {
		cfg.EmbeddingsPath = "/v1/embeddings"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ResidentMiB <= 0 {
		cfg.ResidentMiB = 900
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Backend{cfg: cfg, client: &http.Client{Transport: tr}}, nil
}

func (b *Backend) Variant() backend.Variant { return backend.VariantFull }
func (b *Backend) Language() string         { return b.cfg.Lang }
func (b *Backend) ResidentMiB() int         { return b.cfg.ResidentMiB }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (b *Backend) Analyze(ctx context.Context, text, lang string) (backend.SemanticSignals, error) {
	prompt := fmt.Sprintf(
		"Score the following %s text on positive, negative, intense, conflict, resolution "+
			"each in [0,1] and reply as compact JSON with those five keys only:\n\n%s", lang, text)
	raw, err := b.chat(ctx, prompt)
	if err != nil {
		return backend.SemanticSignals{}, err
	}
	var sig backend.SemanticSignals
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &sig); err != nil {
		return backend.SemanticSignals{}, fmt.Errorf("httpbackend: analyze response not valid JSON: %w", err)
	}
	return sig, nil
}

func (b *Backend) Rewrite(ctx context.Context, text string, params backend.RewriteParams, lang string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite stage %q, style %q, language %q. Preserve the original text verbatim as a "+
			"substring of your reply; only prepend, append, or splice at clause boundaries:\n\n%s",
		params.Stage, params.Style, lang, text)
	return b.chat(ctx, prompt)
}

func (b *Backend) chat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    b.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	var resp chatResponse
	if err := b.doJSON(ctx, b.cfg.ChatCompletionsPath, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("httpbackend: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (b *Backend) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	reqBody := embeddingsRequest{Model: b.cfg.Model, Input: texts}
	var resp embeddingsResponse
	if err := b.doJSON(ctx, b.cfg.EmbeddingsPath, reqBody, &resp); err != nil {
		return nil, err
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

func (b *Backend) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.New(resp.StatusCode, "upstream_error", fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}
	return json.Unmarshal(body, respBody)
}
