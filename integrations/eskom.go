package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridx-backend/cache"
)

const NoLoadSheddingMessage = "No load shedding today"

// Eskom talks to the EskomSePush business API.
type Eskom struct {
	baseURL string
	token   string
	client  *http.Client
	cache   *cache.Cache
}

func NewEskom(baseURL, token string, timeout time.Duration, c *cache.Cache) *Eskom {
	return &Eskom{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  newHTTPClient(timeout),
		cache:   c,
	}
}

type areaResponse struct {
	Events []struct {
		Note  string `json:"note"`
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"events"`
}

// AreaSchedule returns one "<note> at <start>" line per upcoming event.
func (e *Eskom) AreaSchedule(ctx context.Context, areaID string) ([]string, error) {
	if e.token == "" {
		return nil, fmt.Errorf("eskomsepush: %w", ErrNotConfigured)
	}
	if areaID == "" {
		return nil, fmt.Errorf("eskomsepush: area id is required")
	}
	return cache.Remember(ctx, e.cache, "eskom:area:"+areaID, func(ctx context.Context) ([]string, error) {
		var resp areaResponse
		endpoint := e.baseURL + "/area?id=" + url.QueryEscape(areaID)
		if err := doJSON(ctx, e.client, "eskomsepush", http.MethodGet, endpoint, e.headers(), nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Events) == 0 {
			return []string{NoLoadSheddingMessage}, nil
		}
		schedule := make([]string, 0, len(resp.Events))
		for _, event := range resp.Events {
			schedule = append(schedule, fmt.Sprintf("%s at %s", event.Note, event.Start))
		}
		return schedule, nil
	})
}

// SearchAreas passes the upstream search result through unchanged.
func (e *Eskom) SearchAreas(ctx context.Context, text string) (json.RawMessage, error) {
	if e.token == "" {
		return nil, fmt.Errorf("eskomsepush: %w", ErrNotConfigured)
	}
	return cache.Remember(ctx, e.cache, "eskom:search:"+strings.ToLower(text), func(ctx context.Context) (json.RawMessage, error) {
		var raw json.RawMessage
		endpoint := e.baseURL + "/areas_search?text=" + url.QueryEscape(text)
		if err := doJSON(ctx, e.client, "eskomsepush", http.MethodGet, endpoint, e.headers(), nil, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	})
}

func (e *Eskom) headers() map[string]string {
	return map[string]string{"Token": e.token}
}
