package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// overridePayload is the body posted to the outer scheduler's frame-state
// override endpoint.
type overridePayload struct {
	State string `json:"state"`
	Text  string `json:"text"`
	Color [3]int `json:"color"`
}

// HTTPPusher pushes frame-state overrides to the outer scheduler over HTTP.
// It is only constructed when a frame identifier is present in the process
// environment; that check lives in the runner package's newFrameStatePusher.
type HTTPPusher struct {
	client   *http.Client
	endpoint string
}

// NewHTTPPusher builds a pusher targeting <baseURL>/frames/<frameID>/state_override.
func NewHTTPPusher(baseURL, frameID string) *HTTPPusher {
	return &HTTPPusher{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: fmt.Sprintf("%s/frames/%s/state_override", baseURL, frameID),
	}
}

func (p *HTTPPusher) Push(stage string, percent float64, color [3]int) error {
	body, err := json.Marshal(overridePayload{
		State: "RUNNING",
		Text:  fmt.Sprintf("%s %.1f%%", stage, percent),
		Color: color,
	})
	if err != nil {
		return fmt.Errorf("marshal override payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build override request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push frame state override: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("frame state override rejected: status %d", resp.StatusCode)
	}
	return nil
}
