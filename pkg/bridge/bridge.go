// Package bridge talks to the external broker bridge, the black-box HTTP
// service that sits next to a running MT4/MT5 terminal and exposes its deal
// history. The wire protocol is the bridge's business; this client only
// fetches and decodes.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Deal 桥接端返回的一笔已执行交易
type Deal struct {
	Ticket     string  `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"` // buy/sell
	Volume     float64 `json:"volume"`
	OpenTime   int64   `json:"open_time"`  // unix seconds
	CloseTime  int64   `json:"close_time"` // 0 while still open
	OpenPrice  float64 `json:"open_price"`
	ClosePrice float64 `json:"close_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Profit     float64 `json:"profit"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type dealsResponse struct {
	Deals []Deal `json:"deals"`
}

// FetchDeals pulls the full deal history for a terminal login.
func (c *Client) FetchDeals(ctx context.Context, login string) ([]Deal, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/deals", c.baseURL, url.PathEscape(login))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded dealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}
	return decoded.Deals, nil
}

// Ping checks bridge availability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge health check returned %d", resp.StatusCode)
	}
	return nil
}
