package integrations

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridx-backend/cache"
)

const (
	NoClearHoursMessage = "No clear hours found"

	clearSkyCloudCover = 30.0
	maxSunlightHours   = 5
)

// Tomorrow reads hourly cloud cover from the Tomorrow.io forecast API.
type Tomorrow struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   *cache.Cache
}

func NewTomorrow(baseURL, apiKey string, timeout time.Duration, c *cache.Cache) *Tomorrow {
	return &Tomorrow{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		cache:   c,
	}
}

type forecastResponse struct {
	Data struct {
		Timelines []struct {
			Intervals []struct {
				StartTime string `json:"startTime"`
				Values    struct {
					CloudCover float64 `json:"cloudCover"`
				} `json:"values"`
			} `json:"intervals"`
		} `json:"timelines"`
	} `json:"data"`
	Timelines struct {
		Hourly []struct {
			Time   string `json:"time"`
			Values struct {
				CloudCover float64 `json:"cloudCover"`
			} `json:"values"`
		} `json:"hourly"`
	} `json:"timelines"`
}

// SunlightHours lists up to five HH:MM slots with cloud cover under 30%.
func (t *Tomorrow) SunlightHours(ctx context.Context, location string) ([]string, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tomorrow.io: %w", ErrNotConfigured)
	}
	return cache.Remember(ctx, t.cache, "tomorrow:sunlight:"+strings.ToLower(location), func(ctx context.Context) ([]string, error) {
		query := url.Values{}
		query.Set("location", location)
		query.Set("fields", "cloudCover")
		query.Set("timesteps", "1h")
		query.Set("apikey", t.apiKey)

		var resp forecastResponse
		endpoint := t.baseURL + "/weather/forecast?" + query.Encode()
		if err := doJSON(ctx, t.client, "tomorrow.io", http.MethodGet, endpoint, nil, nil, &resp); err != nil {
			return nil, err
		}
		return clearHours(resp), nil
	})
}

// clearHours accepts both the timelines[].intervals and the timelines.hourly
// response shapes.
func clearHours(resp forecastResponse) []string {
	var hours []string
	add := func(stamp string, cloudCover float64) {
		if len(hours) >= maxSunlightHours || cloudCover >= clearSkyCloudCover || len(stamp) < 16 {
			return
		}
		hours = append(hours, stamp[11:16])
	}

	if len(resp.Data.Timelines) > 0 {
		for _, interval := range resp.Data.Timelines[0].Intervals {
			add(interval.StartTime, interval.Values.CloudCover)
		}
	}
	for _, hour := range resp.Timelines.Hourly {
		add(hour.Time, hour.Values.CloudCover)
	}

	if len(hours) == 0 {
		return []string{NoClearHoursMessage}
	}
	return hours
}
