// Package permission is the client of the subscription / reading-permission API.
package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"bottarot-be/internal/entity"
)

// AnonymousUser is the path segment used for visitors without a session.
const AnonymousUser = "anonymous"

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client

	lastContact atomic.Int64 // unix millis of the last successful answer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("permission api: %s answered %d", e.Path, e.StatusCode)
}

type subscriptionResponse struct {
	PlanName              string     `json:"plan_name"`
	HasActiveSubscription bool       `json:"has_active_subscription"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	CanAskQuestion        bool       `json:"can_ask_question"`
	QuestionsRemaining    int        `json:"questions_remaining"`
}

type readingPermissionsResponse struct {
	IsPremium            bool   `json:"is_premium"`
	CanReadToday         bool   `json:"can_read_today"`
	CanSeeFuture         bool   `json:"can_see_future"`
	ReadingsToday        int    `json:"readings_today"`
	FreeFuturesRemaining int    `json:"free_futures_remaining"`
	HistoryLimit         int    `json:"history_limit"`
	PlanName             string `json:"plan_name"`
}

type recordReadingRequest struct {
	UserId         string `json:"userId"`
	RevealedFuture bool   `json:"revealedFuture"`
}

type questionRequest struct {
	UserId    string   `json:"userId"`
	Question  string   `json:"question"`
	Response  string   `json:"response"`
	Cards     []string `json:"cards"`
	IsPremium bool     `json:"isPremium"`
}

type PingResponse struct {
	Time    string `json:"time"`
	Message string `json:"message"`
}

func (c *Client) GetSubscription(ctx context.Context, userID string) (*entity.Subscription, error) {
	var res subscriptionResponse
	if err := c.do(ctx, c.timeout, http.MethodGet, "/api/user/subscription/"+url.PathEscape(userID), nil, &res); err != nil {
		return nil, err
	}
	return &entity.Subscription{
		PlanName:              res.PlanName,
		HasActiveSubscription: res.HasActiveSubscription,
		SubscriptionEndDate:   res.SubscriptionEndDate,
		CanAskQuestion:        res.CanAskQuestion,
		QuestionsRemaining:    res.QuestionsRemaining,
	}, nil
}

// GetReadingPermissions accepts a user id or AnonymousUser.
func (c *Client) GetReadingPermissions(ctx context.Context, userID string) (*entity.ReadingPermissions, error) {
	var res readingPermissionsResponse
	if err := c.do(ctx, c.timeout, http.MethodGet, "/api/user/reading-permissions/"+url.PathEscape(userID), nil, &res); err != nil {
		return nil, err
	}
	return &entity.ReadingPermissions{
		IsPremium:            res.IsPremium,
		CanReadToday:         res.CanReadToday,
		CanSeeFuture:         res.CanSeeFuture,
		ReadingsToday:        res.ReadingsToday,
		FreeFuturesRemaining: res.FreeFuturesRemaining,
		HistoryLimit:         res.HistoryLimit,
		PlanName:             res.PlanName,
	}, nil
}

func (c *Client) RecordReading(ctx context.Context, userID string, revealedFuture bool) error {
	body := recordReadingRequest{UserId: userID, RevealedFuture: revealedFuture}
	return c.do(ctx, c.timeout, http.MethodPost, "/api/user/record-reading", body, nil)
}

func (c *Client) RecordQuestion(ctx context.Context, q entity.QuestionRecord) error {
	cards := q.Cards
	if cards == nil {
		cards = []string{}
	}
	body := questionRequest{
		UserId:    q.UserId,
		Question:  q.Question,
		Response:  q.Response,
		Cards:     cards,
		IsPremium: q.IsPremium,
	}
	return c.do(ctx, c.timeout, http.MethodPost, "/api/user/question", body, nil)
}

// Ping wakes the API up; it gets its own, longer timeout.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) (*PingResponse, error) {
	var res PingResponse
	if err := c.do(ctx, timeout, http.MethodGet, "/ping", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LastContact is the time of the last successful answer from the API, zero if none.
func (c *Client) LastContact() time.Time {
	ms := c.lastContact.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("permission api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	c.lastContact.Store(time.Now().UnixMilli())

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
