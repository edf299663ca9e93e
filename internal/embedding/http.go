package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	merr "github.com/objones25/mnemo/pkg/errors"
)

const defaultHTTPTimeout = 30 // seconds

// HTTPConfig configures a remote embedding service speaking the
// feature-extraction protocol: POST {"inputs": [text, ...]} returning one
// float vector per input.
type HTTPConfig struct {
	URL            string
	APIKey         string
	TimeoutSeconds int
	Dimension      int
}

// HTTPGenerator fetches embeddings from a remote service.
type HTTPGenerator struct {
	cfg        HTTPConfig
	httpClient *http.Client
	normalizer *Normalizer
}

func NewHTTPGenerator(cfg HTTPConfig) (*HTTPGenerator, error) {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultHTTPTimeout
	}
	if cfg.URL == "" {
		return nil, merr.New(merr.CodeConfigInvalid, "embedding service url cannot be empty")
	}
	if cfg.Dimension < 1 {
		return nil, merr.Errorf(merr.CodeConfigInvalid, "embedding dimension must be positive, got %d", cfg.Dimension)
	}

	return &HTTPGenerator{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		normalizer: NewNormalizer(),
	}, nil
}

func (g *HTTPGenerator) Dimension() int {
	return g.cfg.Dimension
}

func (g *HTTPGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	text = g.normalizer.Normalize(text)
	if text == "" {
		return nil, merr.New(merr.CodeRequestInvalid, "cannot embed empty text")
	}

	vectors, err := g.callService(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	vec := vectors[0]
	if len(vec) != g.cfg.Dimension {
		return nil, merr.Errorf(merr.CodeDimensionMismatch,
			"embedding service returned dimension %d, expected %d", len(vec), g.cfg.Dimension)
	}
	return vec, nil
}

func (g *HTTPGenerator) callService(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"inputs": texts,
	})
	if err != nil {
		return nil, merr.Wrap(err, merr.CodeSerialization, "encode embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(detail))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, merr.Wrap(err, merr.CodeSerialization, "decode embedding response")
	}
	return vectors, nil
}
