package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteClassifier posts images to an inference server that answers with
// {"label": <int>, "confidence": <float>}.
type RemoteClassifier struct {
	URL    string
	Client *http.Client
}

func NewRemoteClassifier(url string, timeout time.Duration) *RemoteClassifier {
	return &RemoteClassifier{URL: url, Client: &http.Client{Timeout: timeout}}
}

type prediction struct {
	Label      *int    `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (rc *RemoteClassifier) Classify(ctx context.Context, jpeg []byte) (int, float64, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", rc.URL, bytes.NewReader(jpeg))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	client := rc.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, 0, fmt.Errorf("classifier: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, 0, fmt.Errorf("decode prediction: %w", err)
	}
	if p.Label == nil {
		return 0, 0, fmt.Errorf("decode prediction: missing label")
	}
	return *p.Label, p.Confidence, nil
}
