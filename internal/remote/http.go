package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// HTTPClient implements Client against the adherence backend's JSON API.
type HTTPClient struct {
	baseURL     string
	credentials CredentialSource
	httpClient  *http.Client
}

// NewHTTPClient constructs a client with the provided timeout.
func NewHTTPClient(baseURL string, credentials CredentialSource, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// IncrementBraceHours adds hoursDelta to the brace hours worn on date.
func (c *HTTPClient) IncrementBraceHours(ctx context.Context, date domain.CalendarDate, hoursDelta float64) (BraceResult, error) {
	var out BraceResult
	err := c.do(ctx, http.MethodPost, "/v1/brace/hours", map[string]any{
		"date":        date,
		"hours_delta": hoursDelta,
	}, &out)
	if err != nil {
		return BraceResult{}, err
	}
	return out, checkSuccess(out.Success, "increment brace hours")
}

// LogPhysioSession records one completed physio session on date.
func (c *HTTPClient) LogPhysioSession(ctx context.Context, date domain.CalendarDate) (PhysioResult, error) {
	var out PhysioResult
	if err := c.do(ctx, http.MethodPost, "/v1/physio/sessions", map[string]any{"date": date}, &out); err != nil {
		return PhysioResult{}, err
	}
	return out, checkSuccess(out.Success, "log physio session")
}

// UpdateRecoveryTask marks a checklist task as completed on date.
func (c *HTTPClient) UpdateRecoveryTask(ctx context.Context, date domain.CalendarDate, taskID string) (TaskResult, error) {
	var out TaskResult
	path := fmt.Sprintf("/v1/recovery/tasks/%s/complete", url.PathEscape(taskID))
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"date": date}, &out); err != nil {
		return TaskResult{}, err
	}
	return out, checkSuccess(out.Success, "update recovery task")
}

// AdvanceStreak asks the backend to advance the daily streak for date.
func (c *HTTPClient) AdvanceStreak(ctx context.Context, date domain.CalendarDate) (StreakResult, error) {
	var out StreakResult
	if err := c.do(ctx, http.MethodPost, "/v1/streak/advance", map[string]any{"date": date}, &out); err != nil {
		return StreakResult{}, err
	}
	return out, checkSuccess(out.Success, "advance streak")
}

// FetchProfile loads the account profile and the backend's progress for date.
func (c *HTTPClient) FetchProfile(ctx context.Context, date domain.CalendarDate) (ProfileResult, error) {
	var out ProfileResult
	path := "/v1/profile?date=" + url.QueryEscape(date.String())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ProfileResult{}, err
	}
	return out, checkSuccess(out.Success, "fetch profile")
}

// ResetDaily tells the backend a subsystem's daily counters were reset locally.
func (c *HTTPClient) ResetDaily(ctx context.Context, subsystem string, date domain.CalendarDate) error {
	var out ackResult
	if err := c.do(ctx, http.MethodPost, "/v1/daily-reset", map[string]any{
		"subsystem": subsystem,
		"date":      date,
	}, &out); err != nil {
		return err
	}
	return checkSuccess(out.Success, "daily reset")
}

// UpdateWalkingMinutes stores today's walking minutes.
func (c *HTTPClient) UpdateWalkingMinutes(ctx context.Context, date domain.CalendarDate, minutes int) error {
	var out ackResult
	if err := c.do(ctx, http.MethodPut, "/v1/walking", map[string]any{
		"date":    date,
		"minutes": minutes,
	}, &out); err != nil {
		return err
	}
	return checkSuccess(out.Success, "update walking minutes")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: backend rejected credential", domain.ErrAuthMissing)
	}
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrNetworkFailure, path, err)
	}
	return nil
}

func checkSuccess(ok bool, op string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s reported success=false", domain.ErrNetworkFailure, op)
}

// StatusError represents a non-successful backend response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend responded %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Unwrap lets callers match StatusError against domain.ErrNetworkFailure.
func (e *StatusError) Unwrap() error { return domain.ErrNetworkFailure }
