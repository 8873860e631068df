package vision

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
)

// FilesPath is the file API collection the publisher posts to.
const FilesPath = "/api/files/"

// maxErrorBody caps how much of a failed response is kept in PublishError.
const maxErrorBody = 512

// HTTPPublisher posts images to the file API.
type HTTPPublisher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPublisher targets domain + FilesPath. timeout bounds the whole
// request; zero disables it.
func NewHTTPPublisher(domain string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint: strings.TrimRight(domain, "/") + FilesPath,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

// Endpoint returns the URL images are posted to.
func (p *HTTPPublisher) Endpoint() string {
	return p.endpoint
}

type publishRequest struct {
	File string `json:"file"`
}

type publishResponse struct {
	File string `json:"file"`
}

// Publish sends {"file": dataURI} and expects 201 Created with the stored
// file reference in the "file" field.
func (p *HTTPPublisher) Publish(ctx context.Context, dataURI string) (PublishResult, error) {
	body, err := json.Marshal(publishRequest{File: dataURI})
	if err != nil {
		return PublishResult{}, &PublishError{Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return PublishResult{}, &PublishError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return PublishResult{}, &PublishError{Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return PublishResult{}, &PublishError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var result publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return PublishResult{}, &PublishError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.File == "" {
		return PublishResult{}, &PublishError{StatusCode: resp.StatusCode, Err: fmt.Errorf("response has no file reference")}
	}

	return PublishResult{Reference: result.File}, nil
}
