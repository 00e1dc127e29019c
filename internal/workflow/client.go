package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 5 * time.Minute

	maxEnvelopeBytes = 64 << 20
	maxErrorBody     = 2048
)

// ClientConfig holds the transport settings shared by every flow.
type ClientConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Flow selects one workflow on the shared endpoint.
type Flow struct {
	Name      string
	APICode   string
	AccessKey string
}

// Caller is what the analysis services need from the workflow.
type Caller interface {
	Call(ctx context.Context, flow Flow, params any) (*Envelope, error)
}

// Client posts non-streaming workflow requests.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("workflow base url is required")
	}
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = DefaultReadTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read
	return &Client{
		http:    &http.Client{Transport: transport},
		baseURL: baseURL,
	}, nil
}

// Call sends params as paramJson for flow and returns the raw envelope. The
// envelope's own status fields are left to Decode.
func (c *Client) Call(ctx context.Context, flow Flow, params any) (*Envelope, error) {
	if strings.TrimSpace(flow.APICode) == "" {
		return nil, fmt.Errorf("workflow %s: api code is required", flow.Name)
	}
	body, err := json.Marshal(Request{APICode: flow.APICode, Stream: false, ParamJSON: params})
	if err != nil {
		return nil, fmt.Errorf("encode workflow request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if flow.AccessKey != "" {
		req.Header.Set("ak", flow.AccessKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call workflow %s: %w", flow.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{Code: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}

	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxEnvelopeBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode workflow %s envelope: %w", flow.Name, err)
	}
	log.Printf("workflow: %s returned code=%d success=%t request=%s elapsed=%s",
		flow.Name, env.Code, env.Success, env.RequestID, time.Since(started).Round(time.Millisecond))
	return &env, nil
}
