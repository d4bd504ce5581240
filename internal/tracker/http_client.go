package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spec-kit/support-sync/internal/auth"
	"github.com/spec-kit/support-sync/internal/config"
	"github.com/spec-kit/support-sync/pkg/timestamp"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// HTTPClient talks to the tracker REST API using installation tokens.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	maxElapsed time.Duration
}

// NewHTTPClient builds the tracker adapter.
func NewHTTPClient(cfg config.TrackerConfig, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		tokens:     tokens,
		maxElapsed: cfg.RetryMaxElapsed(),
	}
}

// remoteIssue mirrors the tracker's issue payload. Timestamp fields are
// decoded as raw values because different tracker versions emit epoch
// numbers, calendar strings, or seconds+nanoseconds objects.
type remoteIssue struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	URL       string   `json:"html_url"`
	State     string   `json:"state"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
	CreatedAt any      `json:"created_at"`
	UpdatedAt any      `json:"updated_at"`
}

// ListOpenIssues implements RemoteClient. Retries transient failures.
func (c *HTTPClient) ListOpenIssues(ctx context.Context, installationRef, repository string) ([]CandidateIssue, error) {
	path := fmt.Sprintf("/repos/%s/issues?state=open", repository)
	var issues []CandidateIssue
	err := c.retry(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, path, installationRef, nil)
		if err != nil {
			return err
		}
		var remote []remoteIssue
		if err := json.Unmarshal(body, &remote); err != nil {
			return apperrors.NewInternalError(fmt.Errorf("decode issue list: %w", err))
		}
		issues = make([]CandidateIssue, 0, len(remote))
		for _, ri := range remote {
			issues = append(issues, toCandidate(ri))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// CloseIssue implements RemoteClient. Closing is idempotent on the tracker
// side, so transient failures are retried.
func (c *HTTPClient) CloseIssue(ctx context.Context, installationRef, repository string, externalIssueID int64) error {
	path := fmt.Sprintf("/repos/%s/issues/%d/close", repository, externalIssueID)
	return c.retry(ctx, func() error {
		_, err := c.do(ctx, http.MethodPost, path, installationRef, nil)
		return err
	})
}

// CreateComment implements RemoteClient. Comment creation is not idempotent,
// so it gets exactly one attempt.
func (c *HTTPClient) CreateComment(ctx context.Context, installationRef, repository string, externalIssueID int64, body string) error {
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repository, externalIssueID)
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	_, err = c.do(ctx, http.MethodPost, path, installationRef, payload)
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path, installationRef string, payload []byte) ([]byte, error) {
	token, err := c.tokens.InstallationToken(ctx, installationRef)
	if err != nil {
		return nil, apperrors.NewPermissionError("installation credential unavailable", err)
	}
	if auth.InstallationTokenExpired(token, time.Now()) {
		return nil, apperrors.NewPermissionError("installation credential expired", nil)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientError("tracker unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransientError("tracker response truncated", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(resp.StatusCode, method, path)
}

func statusError(status int, method, path string) error {
	op := method + " " + path
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewPermissionError("tracker rejected installation credential", fmt.Errorf("%s: status %d", op, status))
	case status == http.StatusNotFound:
		return apperrors.NewNotFound("tracker resource", map[string]any{"op": op})
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.NewTransientError("tracker unavailable", fmt.Errorf("%s: status %d", op, status))
	default:
		return apperrors.NewInternalError(fmt.Errorf("%s: unexpected status %d", op, status))
	}
}

// retry re-invokes op on transient failures until the configured window
// elapses. Permission, not-found, and validation failures stop immediately.
func (c *HTTPClient) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.maxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if apperrors.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}

func toCandidate(ri remoteIssue) CandidateIssue {
	created, _ := timestamp.Normalize(ri.CreatedAt)
	updated, _ := timestamp.Normalize(ri.UpdatedAt)
	return CandidateIssue{
		ID:              ri.ID,
		Title:           ri.Title,
		Body:            ri.Body,
		URL:             ri.URL,
		State:           ri.State,
		Labels:          ri.Labels,
		Assignees:       ri.Assignees,
		CreatedAtMillis: created,
		UpdatedAtMillis: updated,
	}
}
