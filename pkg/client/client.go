// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package client is a Go client for the sealbid HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/api"
	"github.com/luxfi/sealbid/pkg/auction"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/events"
	"github.com/luxfi/sealbid/pkg/ids"
)

// Client talks to one sealbid node
type Client struct {
	baseURL    string
	principal  ids.Address
	httpClient *http.Client
}

// NewClient creates a client acting as principal. The empty address is
// enough for read-only calls.
func NewClient(baseURL string, principal ids.Address) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		principal: principal,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx response
type APIError struct {
	Status int
	api.ErrorDetail
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (c *Client) Info(ctx context.Context) (*api.InfoResponse, error) {
	var out api.InfoResponse
	return &out, c.do(ctx, http.MethodGet, "/api/v1/info", nil, &out)
}

// GenerateCommitment asks the node to hash amount and nonce with its scheme.
// The bid amount is sent in the clear; use commit.New locally to keep it private.
func (c *Client) GenerateCommitment(ctx context.Context, amount *uint256.Int, nonce ids.ID) (commit.Commitment, error) {
	var out api.CommitmentResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/commitments", api.CommitmentRequest{Amount: amount, Nonce: nonce}, &out)
	return out.Commitment, err
}

func (c *Client) CreateAuction(ctx context.Context, req api.CreateAuctionRequest) (*events.AuctionCreated, error) {
	var out events.AuctionCreated
	return &out, c.do(ctx, http.MethodPost, "/api/v1/auctions", req, &out)
}

func (c *Client) ListAuctions(ctx context.Context) ([]*auction.Snapshot, error) {
	var out struct {
		Auctions []*auction.Snapshot `json:"auctions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/auctions", nil, &out)
	return out.Auctions, err
}

func (c *Client) GetAuction(ctx context.Context, id uint64) (*auction.Snapshot, error) {
	var out auction.Snapshot
	return &out, c.do(ctx, http.MethodGet, auctionPath(id, ""), nil, &out)
}

// Commit locks value in escrow behind commitment
func (c *Client) Commit(ctx context.Context, id uint64, commitment commit.Commitment, value *uint256.Int) (*events.BidCommitted, error) {
	var out events.BidCommitted
	req := api.CommitRequest{Commitment: commitment, Value: value}
	return &out, c.do(ctx, http.MethodPost, auctionPath(id, "commit"), req, &out)
}

func (c *Client) Reveal(ctx context.Context, id uint64, amount *uint256.Int, nonce ids.ID) (*events.BidRevealed, error) {
	var out events.BidRevealed
	req := api.RevealRequest{Amount: amount, Nonce: nonce}
	return &out, c.do(ctx, http.MethodPost, auctionPath(id, "reveal"), req, &out)
}

func (c *Client) End(ctx context.Context, id uint64) (*events.AuctionEnded, error) {
	var out events.AuctionEnded
	return &out, c.do(ctx, http.MethodPost, auctionPath(id, "end"), nil, &out)
}

// Deliver retries a failed asset hand-off after settlement
func (c *Client) Deliver(ctx context.Context, id uint64) (*events.AssetDelivered, error) {
	var out events.AssetDelivered
	return &out, c.do(ctx, http.MethodPost, auctionPath(id, "deliver"), nil, &out)
}

func (c *Client) Account(ctx context.Context, who ids.Address) (*api.AccountResponse, error) {
	var out api.AccountResponse
	return &out, c.do(ctx, http.MethodGet, "/api/v1/accounts/"+who.String(), nil, &out)
}

// Withdraw pays out the principal's outstanding claim
func (c *Client) Withdraw(ctx context.Context) (*uint256.Int, error) {
	var out api.WithdrawResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/accounts/"+c.principal.String()+"/withdraw", nil, &out)
	return out.Amount, err
}

func (c *Client) Asset(ctx context.Context, id string) (*api.AssetResponse, error) {
	var out api.AssetResponse
	return &out, c.do(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(id), nil, &out)
}

// Approve lets operator move the asset; the empty address means the custodian
func (c *Client) Approve(ctx context.Context, id string, operator ids.Address) error {
	return c.do(ctx, http.MethodPost, "/api/v1/assets/"+url.PathEscape(id)+"/approve", api.ApproveRequest{Operator: operator}, nil)
}

func auctionPath(id uint64, action string) string {
	p := "/api/v1/auctions/" + strconv.FormatUint(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.principal.IsEmpty() {
		req.Header.Set(api.PrincipalHeader, c.principal.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope api.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.ErrorDetail = envelope.Error
		} else {
			apiErr.Code = "HTTPError"
			apiErr.Message = resp.Status
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Watch streams event envelopes from the admin websocket at wsURL
// (e.g. ws://localhost:9090/ws). auctionID 0 subscribes to every auction.
// The channel closes when ctx is done or the connection drops.
func Watch(ctx context.Context, wsURL string, auctionID uint64) (<-chan *events.Envelope, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if auctionID != 0 {
		q := u.Query()
		q.Set("auction", strconv.FormatUint(auctionID, 10))
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	out := make(chan *events.Envelope, 16)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var env events.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			select {
			case out <- &env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
