package solve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	quorum "github.com/csabak/quorum"
)

// Generator produces candidate completions for a batch of prompts.
//
// Contract: the returned outer slice has one element per prompt, in
// prompt order; the inner slices hold that prompt's candidates in the
// engine's generation order. The whole pipeline relies on this ordering,
// so an implementation that cannot guarantee it must re-order before
// returning.
type Generator interface {
	Generate(ctx context.Context, prompts []string, params quorum.Params) ([][]string, error)
}

// Client performs batched text generation against an OpenAI-compatible
// completions API, the kind vLLM serves. One call submits all prompts;
// the engine handles its own internal parallelism.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewClient creates a client for the given engine endpoint.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		// Wide-sampling batches over large models are slow; the engine
		// call is expected to block for minutes, not seconds.
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

type completionRequest struct {
	Model     string   `json:"model"`
	Prompt    []string `json:"prompt"`
	N         int      `json:"n,omitempty"`
	BestOf    int      `json:"best_of,omitempty"`
	MaxTokens int      `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
	Error   *apiError          `json:"error,omitempty"`
}

type completionChoice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate submits all prompts as one batched completion call and
// returns params.N candidates per prompt.
//
// The API flattens candidates across prompts: the choice for prompt i,
// sample j carries index i*N+j. Grouping goes by that index rather than
// by response position, so a backend that interleaves choices is still
// decoded correctly.
func (c *Client) Generate(ctx context.Context, prompts []string, params quorum.Params) ([][]string, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	n := params.N
	if n <= 0 {
		n = 1
	}

	reqBody := completionRequest{
		Model:     c.model,
		Prompt:    prompts,
		N:         n,
		BestOf:    params.BestOf,
		MaxTokens: params.MaxTokens,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(body))
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse engine response: %w (body: %s)", err, string(body))
	}

	if result.Error != nil {
		return nil, fmt.Errorf("engine error: %s", result.Error.Message)
	}

	if len(result.Choices) != len(prompts)*n {
		return nil, fmt.Errorf("engine returned %d choices, expected %d (%d prompts x %d samples)",
			len(result.Choices), len(prompts)*n, len(prompts), n)
	}

	out := make([][]string, len(prompts))
	for i := range out {
		out[i] = make([]string, n)
	}
	seen := make([]bool, len(result.Choices))
	for _, choice := range result.Choices {
		if choice.Index < 0 || choice.Index >= len(result.Choices) {
			return nil, fmt.Errorf("engine returned out-of-range choice index %d", choice.Index)
		}
		if seen[choice.Index] {
			return nil, fmt.Errorf("engine returned duplicate choice index %d", choice.Index)
		}
		seen[choice.Index] = true
		out[choice.Index/n][choice.Index%n] = choice.Text
	}

	return out, nil
}

// setHeaders sets common headers for engine requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
