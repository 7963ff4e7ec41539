// Package analyzer is the HTTP client for the external meal analysis
// service. It implements the orchestrator's Analyzer contract: one
// request per call, no internal retries.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nutrimind/nutrimind/internal/orchestrator"
	"github.com/nutrimind/nutrimind/internal/workspace"
)

// Client calls the analysis service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type analyzeRequest struct {
	UserID      int64                  `json:"user_id"`
	MealType    string                 `json:"meal_type,omitempty"`
	Description string                 `json:"description"`
	Preferences *workspace.Preferences `json:"preferences,omitempty"`
}

// Analyze posts the meal to the service and decodes the analysis.
func (c *Client) Analyze(ctx context.Context, input orchestrator.AnalysisInput, prefs *workspace.Preferences) (*orchestrator.Analysis, error) {
	body, err := json.Marshal(analyzeRequest{
		UserID:      input.UserID,
		MealType:    input.MealType,
		Description: input.Description,
		Preferences: prefs,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("analyzer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer: call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analyzer: service returned %d: %s", resp.StatusCode, snippet)
	}

	var analysis orchestrator.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("analyzer: decode response: %w", err)
	}
	return &analysis, nil
}
