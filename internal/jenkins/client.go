// Package jenkins talks to the build-manager API that fronts the Jenkins
// instance: triggering builds, reading last-build status, fetching console
// logs and listing a job's builds. The engine treats it as a black box.
package jenkins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type TriggerResult struct {
	JobName string `json:"jobName"`
	Message string `json:"message"`
}

type BuildStatus struct {
	Status      string `json:"status"`
	BuildNumber int64  `json:"buildNumber"`
}

// Build is the raw shape returned by the builds listing endpoint.
// Timestamp is unix milliseconds.
type Build struct {
	Number    int64  `json:"number"`
	Result    string `json:"result"`
	Building  bool   `json:"building"`
	Duration  int64  `json:"duration"`
	Timestamp int64  `json:"timestamp"`
}

type apiError struct {
	Error string `json:"error"`
}

type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		// the API proxies every call straight to Jenkins, so keep the
		// outbound rate well below what a handful of pollers could produce
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (c *Client) TriggerBuild(ctx context.Context, repoURL string) (*TriggerResult, error) {
	body, err := json.Marshal(map[string]string{"repoUrl": repoURL})
	if err != nil {
		return nil, err
	}
	result := new(TriggerResult)
	if err := c.doJSON(ctx, http.MethodPost, "/api/build", body, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetBuildStatus(ctx context.Context, jobName string) (*BuildStatus, error) {
	status := new(BuildStatus)
	path := fmt.Sprintf("/api/status/%s", jobName)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) GetBuildLogs(ctx context.Context, jobName string, buildNumber int64) (string, error) {
	var payload struct {
		Logs string `json:"logs"`
	}
	path := fmt.Sprintf("/api/logs/%s/%d", jobName, buildNumber)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return "", err
	}
	return payload.Logs, nil
}

func (c *Client) ListBuilds(ctx context.Context, jobName string) ([]Build, error) {
	var payload struct {
		Builds []Build `json:"builds"`
	}
	path := fmt.Sprintf("/api/builds/%s", jobName)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	if payload.Builds == nil {
		payload.Builds = []Build{}
	}
	return payload.Builds, nil
}

func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	body []byte,
	dest any,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := new(apiError)
		if err := json.NewDecoder(res.Body).Decode(apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s [%d]: %s", method, path, res.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(dest)
}
