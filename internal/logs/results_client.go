package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"md5watch/internal/daemon"
)

// ErrAPIUnavailable is returned when no API address is configured.
var ErrAPIUnavailable = errors.New("md5watch HTTP API unavailable")

// ResultsClient reads classification results from a watcher's HTTP API.
type ResultsClient struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewResultsClient returns nil when bind is empty.
func NewResultsClient(bind, token string) (*ResultsClient, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path, base.RawQuery, base.Fragment = "", "", ""
	// Follow requests block until a result arrives; callers cancel via ctx.
	return &ResultsClient{base: base, token: strings.TrimSpace(token), http: &http.Client{}}, nil
}

// Fetch returns results newer than since. With follow the server holds the
// request open until one arrives.
func (c *ResultsClient) Fetch(ctx context.Context, since uint64, limit int, follow bool) (daemon.ResultsResponse, error) {
	if c == nil {
		return daemon.ResultsResponse{}, ErrAPIUnavailable
	}
	values := url.Values{}
	if since > 0 {
		values.Set("since", strconv.FormatUint(since, 10))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		values.Set("follow", "1")
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/results", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return daemon.ResultsResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return daemon.ResultsResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return daemon.ResultsResponse{}, fmt.Errorf("api results returned status %d: %s", resp.StatusCode, body.Error)
		}
		return daemon.ResultsResponse{}, fmt.Errorf("api results returned status %d", resp.StatusCode)
	}

	var payload daemon.ResultsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return daemon.ResultsResponse{}, fmt.Errorf("decode api results: %w", err)
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err means nothing is listening.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
