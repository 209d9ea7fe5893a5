// utils/pinata.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	PinataJSONEndpoint = "https://api.pinata.cloud/pinning/pinJSONToIPFS"
	pinataTimeout      = 60 * time.Second
	pinataMaxRetries   = 5
	pinataBaseDelay    = 2 * time.Second
)

// ErrInvalidPinataJWT is a configuration error — no upload is attempted.
var ErrInvalidPinataJWT = errors.New(
	"invalid PINATA_JWT format, expected header.payload.signature")

// ValidatePinataJWT checks the structural JWT format (three dot-separated
// parts) without verifying the signature.
func ValidatePinataJWT(jwt string) bool {
	parts := strings.Split(jwt, ".")
	return len(parts) == 3 && len(jwt) > 50
}

// PinataClient uploads JSON payloads to Pinata's pinning API with a bounded
// retry loop and exponential backoff. 5xx responses, network errors and
// timeouts are retried; anything else fails immediately. After the final
// attempt a terminal error with full diagnostic context is returned — never a
// silent fallback value.
type PinataClient struct {
	Endpoint   string
	JWT        string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration

	sleep func(time.Duration) // swapped out in tests
}

func NewPinataClient(jwt string) *PinataClient {
	return &PinataClient{
		Endpoint: PinataJSONEndpoint,
		JWT:      jwt,
		HTTPClient: &http.Client{
			Timeout: pinataTimeout,
		},
		MaxRetries: pinataMaxRetries,
		BaseDelay:  pinataBaseDelay,
		sleep:      time.Sleep,
	}
}

type pinataResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// UploadJSON pins payload under the given pin name and returns its ipfs://
// URI. Satisfies services.MetadataUploader.
func (c *PinataClient) UploadJSON(ctx context.Context, payload interface{}, name string) (string, error) {
	if !ValidatePinataJWT(c.JWT) {
		return "", ErrInvalidPinataJWT
	}

	body, err := json.Marshal(map[string]interface{}{
		"pinataMetadata": map[string]string{"name": name},
		"pinataContent":  payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode pin payload: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		uri, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return uri, nil
		}
		lastErr = err

		if !retryable || attempt >= c.MaxRetries {
			return "", fmt.Errorf(
				"pinata upload failed after %d attempt(s) to %s: %w",
				attempt+1, c.Endpoint, lastErr)
		}

		delay := c.BaseDelay * (1 << attempt)
		log.Printf("⚠️ Pinata upload failed (attempt %d/%d), retrying in %s: %v",
			attempt+1, c.MaxRetries, delay, err)
		c.sleep(delay)
	}
}

// attempt performs one upload. The second return value reports whether the
// failure is worth retrying.
func (c *PinataClient) attempt(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.JWT)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Network errors and client/context timeouts are transient.
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", true, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(errText)))
	}
	if resp.StatusCode != http.StatusOK {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", false, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(errText)))
	}

	var pinned pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", false, fmt.Errorf("failed to decode pinata response: %w", err)
	}
	if pinned.IpfsHash == "" {
		return "", false, errors.New("pinata returned empty hash")
	}
	return "ipfs://" + pinned.IpfsHash, false, nil
}
