package neynar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.neynar.com"

// Client talks to the Neynar HTTP API for frame validation and user lookup
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// User is the subset of a Neynar user profile the app stores
type User struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PfpURL      string `json:"pfp_url"`
}

// ValidatedAction is the trusted view of a frame action after validation
type ValidatedAction struct {
	Valid  bool
	FID    int64
	Button int
}

type validateRequest struct {
	MessageBytesInHex string `json:"message_bytes_in_hex"`
}

type validateResponse struct {
	Valid  bool `json:"valid"`
	Action struct {
		Interactor struct {
			FID int64 `json:"fid"`
		} `json:"interactor"`
		TappedButton struct {
			Index int `json:"index"`
		} `json:"tapped_button"`
	} `json:"action"`
}

type bulkUsersResponse struct {
	Users []User `json:"users"`
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// ValidateFrameAction verifies the signed message bytes of a frame action
func (c *Client) ValidateFrameAction(ctx context.Context, messageBytesHex string) (*ValidatedAction, error) {
	body, err := json.Marshal(validateRequest{MessageBytesInHex: messageBytesHex})
	if err != nil {
		return nil, err
	}

	var resp validateResponse
	if err := c.do(ctx, http.MethodPost, "/v2/farcaster/frame/validate", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	return &ValidatedAction{
		Valid:  resp.Valid,
		FID:    resp.Action.Interactor.FID,
		Button: resp.Action.TappedButton.Index,
	}, nil
}

// LookupUserByFID fetches a user's public profile. A fid unknown to Neynar
// returns (nil, nil).
func (c *Client) LookupUserByFID(ctx context.Context, fid int64) (*User, error) {
	var resp bulkUsersResponse
	path := "/v2/farcaster/user/bulk?fids=" + strconv.FormatInt(fid, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	for i := range resp.Users {
		if resp.Users[i].FID == fid {
			return &resp.Users[i], nil
		}
	}
	return nil, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("neynar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("neynar API error: %d - %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode neynar response: %w", err)
	}
	return nil
}
