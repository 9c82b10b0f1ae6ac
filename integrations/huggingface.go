package integrations

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HuggingFace calls a hosted zero-shot classification model.
type HuggingFace struct {
	url    string
	token  string
	client *http.Client
}

func NewHuggingFace(modelURL, token string, timeout time.Duration) *HuggingFace {
	return &HuggingFace{url: modelURL, token: token, client: newHTTPClient(timeout)}
}

func (h *HuggingFace) Enabled() bool {
	return h != nil && h.token != ""
}

type zeroShotRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		CandidateLabels []string `json:"candidate_labels"`
	} `json:"parameters"`
}

type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// ZeroShot scores text against each label. Scores sum to roughly 1.
func (h *HuggingFace) ZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if !h.Enabled() {
		return nil, fmt.Errorf("huggingface: %w", ErrNotConfigured)
	}
	var req zeroShotRequest
	req.Inputs = text
	req.Parameters.CandidateLabels = labels

	var resp zeroShotResponse
	headers := map[string]string{"Authorization": "Bearer " + h.token}
	if err := doJSON(ctx, h.client, "huggingface", http.MethodPost, h.url, headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("huggingface: %d labels but %d scores", len(resp.Labels), len(resp.Scores))
	}

	scores := make(map[string]float64, len(resp.Labels))
	for i, label := range resp.Labels {
		scores[label] = resp.Scores[i]
	}
	return scores, nil
}
