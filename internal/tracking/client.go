package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type progressRequest struct {
	ModuleID       uint    `json:"moduleId"`
	WatchedSeconds int     `json:"watchedSeconds"`
	PercentWatched float64 `json:"percentWatched"`
}

type progressResponse struct {
	Completed bool `json:"completed"`
}

// HTTPFlusher 通过 POST /api/progress 上报快照
type HTTPFlusher struct {
	client *resty.Client
}

func NewHTTPFlusher(baseURL, token string, timeout time.Duration) *HTTPFlusher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPFlusher{client: client}
}

func (f *HTTPFlusher) Flush(ctx context.Context, moduleID uint, snap Snapshot) (bool, error) {
	var out progressResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(progressRequest{
			ModuleID:       moduleID,
			WatchedSeconds: snap.WatchedSeconds,
			PercentWatched: snap.PercentWatched,
		}).
		SetResult(&out).
		Post("/api/progress")
	if err != nil {
		return false, err
	}
	if resp.IsError() {
		return false, fmt.Errorf("progress flush rejected: %s", resp.Status())
	}
	return out.Completed, nil
}
