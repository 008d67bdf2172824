package services

import (
	"bytes"
	"context"
	"fmt"
	"hash"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	scheduleAction      = "schedule"
	maxDiagnosticsBytes = 64 << 10
)

type actionURLBuilder interface {
	ActionURL(action string, params url.Values) string
}

// TransmitResult describes an accepted POST.
type TransmitResult struct {
	URL        string
	BodyHash   string
	StatusCode int
	Body       string
}

// Transmitter posts schedule payloads to the load balancer. It never
// retries; the next scheduled run is the retry.
type Transmitter struct {
	urls       actionURLBuilder
	newHash    func() hash.Hash
	httpClient *http.Client
}

func NewTransmitter(urls actionURLBuilder, newHash func() hash.Hash, httpClient *http.Client) *Transmitter {
	return &Transmitter{urls: urls, newHash: newHash, httpClient: httpClient}
}

func DefaultTransmitterHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// BodyHash returns the digest that Send would put in the bodyhash parameter.
func (t *Transmitter) BodyHash(payload []byte) string {
	return Digest(t.newHash, payload)
}

func (t *Transmitter) Send(ctx context.Context, payload []byte) (*TransmitResult, error) {
	bodyHash := t.BodyHash(payload)
	target := t.urls.ActionURL(scheduleAction, url.Values{"bodyhash": {bodyHash}})
	log.Printf("Calling api: %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransmissionError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &TransmissionError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticsBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("statusCode: %d", resp.StatusCode)
		log.Printf("result: %s", body)
		return nil, &TransmissionError{StatusCode: resp.StatusCode, Body: string(body), Err: readErr}
	}

	log.Printf("API answered okay: %d", resp.StatusCode)
	return &TransmitResult{
		URL:        target,
		BodyHash:   bodyHash,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
