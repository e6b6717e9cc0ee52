package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/l1jgo/mcagent/internal/geo"
)

// HTTPClient is the stub HTTP/JSON implementation of Client: each call is a
// single POST of a JSON request body to <baseURL>/<tool-name>, decoding a
// JSON reply. It is sufficient to compile and unit-test the agent against;
// the actual bridge process's wire format is an external collaborator.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client posting to baseURL (no trailing slash),
// with a default per-call timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) call(ctx context.Context, tool string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("bridge: marshal %s request: %w", tool, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+tool, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bridge: build %s request: %w", tool, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("bridge: call %s: %w", tool, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge: %s returned status %d", tool, httpResp.StatusCode)
	}
	if resp == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return fmt.Errorf("bridge: decode %s response: %w", tool, err)
	}
	return nil
}

func (c *HTTPClient) QueryAreaBlocks(ctx context.Context, radius int) (map[string][]geo.BlockPosition, error) {
	var resp struct {
		Blocks map[string][]geo.BlockPosition `json:"blocks"`
	}
	if err := c.call(ctx, "query_area_blocks", map[string]int{"radius": radius}, &resp); err != nil {
		return nil, err
	}
	return resp.Blocks, nil
}

func (c *HTTPClient) MineBlock(ctx context.Context, pos geo.BlockPosition) error {
	return c.call(ctx, "mine_block", pos, nil)
}

func (c *HTTPClient) KillMob(ctx context.Context, mob string) error {
	return c.call(ctx, "kill_mob", map[string]string{"mob": mob}, nil)
}

func (c *HTTPClient) Chat(ctx context.Context, message string) error {
	return c.call(ctx, "chat", map[string]string{"message": message}, nil)
}

func (c *HTTPClient) QueryRawRecipe(ctx context.Context, item string, useCraftingTable bool) ([]RawRecipe, error) {
	var resp struct {
		Recipes []RawRecipe `json:"recipes"`
	}
	req := map[string]any{"item": item, "use_crafting_table": useCraftingTable}
	if err := c.call(ctx, "query_raw_recipe", req, &resp); err != nil {
		return nil, err
	}
	return resp.Recipes, nil
}

func (c *HTTPClient) CraftWithRecipe(ctx context.Context, recipe RawRecipe, useCraftingTable bool, batches int) error {
	req := map[string]any{
		"recipe":             recipe,
		"use_crafting_table": useCraftingTable,
		"batches":            batches,
	}
	return c.call(ctx, "craft_with_recipe", req, nil)
}
