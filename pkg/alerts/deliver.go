package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	deliveryTimeout = 10 * time.Second
	userAgent       = "liteclient/1.0"
	signatureHeader = "X-Signature-256"
)

// endpoint is one outbound JSON hook shared by the notifiers.
type endpoint struct {
	name   string
	url    string
	secret string
	client *http.Client
}

func newEndpoint(name, url, secret string) endpoint {
	return endpoint{
		name:   name,
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// post delivers payload as JSON. When the endpoint has a secret the body is
// signed with HMAC-SHA256. Any non-2xx answer fails the delivery.
func (e endpoint) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", e.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", e.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if e.secret != "" {
		req.Header.Set(signatureHeader, "sha256="+sign(body, e.secret))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: deliver: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: endpoint answered status %d", e.name, resp.StatusCode)
	}
	return nil
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// eventTime is the event's timestamp, or now when it was left unset.
func eventTime(event Event) time.Time {
	if event.Time.IsZero() {
		return time.Now().UTC()
	}
	return event.Time.UTC()
}
