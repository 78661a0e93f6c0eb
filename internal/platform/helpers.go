package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// postJSON sends a JSON body and decodes the JSON response into out.
// Non-2xx statuses come back as a PublishError classified by status code.
func postJSON(ctx context.Context, platform, url string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(platform, req, out)
}

func getJSON(ctx context.Context, platform, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(platform, req, out)
}

func doJSON(platform string, req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return NewPublishError(KindTransientNetwork, platform, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewPublishError(KindTransientNetwork, platform, "error reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Info("platform API error", "platform", platform, "status", resp.StatusCode, "body", string(respBody))
		return NewPublishError(kindFromStatus(resp.StatusCode), platform,
			fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, truncate(respBody, 300)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewPublishError(KindUnknown, platform, "error parsing response", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
