// Package client talks to a running show tracker over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
	"github.com/Belphemur/ShowTracker/internal/config"
	"github.com/Belphemur/ShowTracker/internal/models"
)

// Client defines the show operations exposed by the REST API
type Client interface {
	// ListShows returns every show, or only those with at least minEpisodes seen when it is non-nil.
	ListShows(ctx context.Context, minEpisodes *int) ([]models.Show, error)
	GetShow(ctx context.Context, id int) (models.Show, error)
	CreateShow(ctx context.Context, name string, episodesSeen int) (models.Show, error)
	// UpdateShow sends only the fields set in update.
	UpdateShow(ctx context.Context, id int, update ShowUpdate) (models.Show, error)
	DeleteShow(ctx context.Context, id int) error
}

// ShowUpdate is a partial update; nil fields keep their stored value.
type ShowUpdate struct {
	Name         *string `json:"name,omitempty"`
	EpisodesSeen *int    `json:"episodes_seen,omitempty"`
}

type showCreate struct {
	Name         string `json:"name"`
	EpisodesSeen int    `json:"episodes_seen"`
}

// envelope is the response body of every API call.
type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type showResult struct {
	Show models.Show `json:"show"`
}

type showsResult struct {
	Shows []models.Show `json:"shows"`
}

type client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the server at cfg.Client.BaseURL, with proxy configuration if provided.
func NewClient(cfg *config.Config) Client {
	timeout := config.ParseDuration("client.timeout", cfg.Client.Timeout, 30*time.Second)

	// Clone DefaultTransport to preserve its pooling and HTTP/2 settings
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Client.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.Client.ProxyConnectionString)
		if err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", cfg.Client.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newAPITransport(baseTransport),
		},
		baseURL: strings.TrimRight(cfg.Client.BaseURL, "/"),
	}
}

func (c *client) ListShows(ctx context.Context, minEpisodes *int) ([]models.Show, error) {
	path := "/shows"
	if minEpisodes != nil {
		path += "?minEpisodes=" + strconv.Itoa(*minEpisodes)
	}

	var result showsResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Shows, nil
}

func (c *client) GetShow(ctx context.Context, id int) (models.Show, error) {
	var result showResult
	if err := c.do(ctx, http.MethodGet, showPath(id), nil, &result); err != nil {
		return models.Show{}, wrapNotFound(err, id)
	}
	return result.Show, nil
}

func (c *client) CreateShow(ctx context.Context, name string, episodesSeen int) (models.Show, error) {
	var result showResult
	body := showCreate{Name: name, EpisodesSeen: episodesSeen}
	if err := c.do(ctx, http.MethodPost, "/shows", body, &result); err != nil {
		return models.Show{}, err
	}
	return result.Show, nil
}

func (c *client) UpdateShow(ctx context.Context, id int, update ShowUpdate) (models.Show, error) {
	var result showResult
	if err := c.do(ctx, http.MethodPut, showPath(id), update, &result); err != nil {
		return models.Show{}, wrapNotFound(err, id)
	}
	return result.Show, nil
}

func (c *client) DeleteShow(ctx context.Context, id int) error {
	return wrapNotFound(c.do(ctx, http.MethodDelete, showPath(id), nil, nil), id)
}

func showPath(id int) string {
	return "/shows/" + strconv.Itoa(id)
}

// wrapNotFound turns a 404 from a show route into apperrors.ErrNotFound.
func wrapNotFound(err error, id int) error {
	if apiErr, ok := err.(*ErrAPI); ok && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", apperrors.NewShowNotFoundError(id), apiErr.Message)
	}
	return err
}

// do sends body as JSON and decodes the envelope result into out when out is non-nil.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &ErrAPI{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	if !env.Success {
		return &ErrAPI{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s %s result: %w", method, path, err)
	}
	return nil
}
