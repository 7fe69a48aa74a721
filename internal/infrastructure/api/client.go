package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the remote booking/catalog/payment API. Every privileged
// call takes the bearer token explicitly; the client holds no session.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// Error is a non-2xx answer or an envelope with success=false.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return e.Message
}

// Message returns the server-provided message of err, or fallback.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	return fallback
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return errors.New("api base url not configured")
	}
	u := strings.TrimRight(base, "/") + path
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	_ = json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}
	if env.Success != nil && !*env.Success {
		return &Error{Status: resp.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
