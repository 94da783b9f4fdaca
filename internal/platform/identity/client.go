// Package identity checks subjects against the patient directory service.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnavailable means the directory could not answer.
var ErrUnavailable = errors.New("identity service unavailable")

type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient returns a client for baseURL whose calls are bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "identity").Logger(),
	}
}

type patient struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	// decodeErr is set when the directory answered 2xx with a body that is
	// not a patient record. The subject still exists.
	decodeErr error
}

// Exists reports whether the directory knows id.
func (c *Client) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := c.fetch(ctx, id)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// IsActive reports whether id is known and its status is ACTIVE.
func (c *Client) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := c.fetch(ctx, id)
	if err != nil || p == nil {
		return false, err
	}
	if p.decodeErr != nil {
		return false, fmt.Errorf("%w: decode response: %v", ErrUnavailable, p.decodeErr)
	}
	return strings.EqualFold(p.Status, "ACTIVE"), nil
}

// fetch returns nil without error when the directory answers with a 4xx.
// Any 2xx yields a record, possibly carrying a decode error.
func (c *Client) fetch(ctx context.Context, id uuid.UUID) (*patient, error) {
	url := fmt.Sprintf("%s/api/v1/patients/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("subject_id", id.String()).Msg("identity lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		c.logger.Error().Int("status", resp.StatusCode).Str("subject_id", id.String()).Msg("identity service error")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		c.logger.Debug().Int("status", resp.StatusCode).Str("subject_id", id.String()).Msg("subject not found")
		return nil, nil
	}

	var p patient
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		c.logger.Warn().Err(err).Str("subject_id", id.String()).Msg("undecodable identity response")
		return &patient{decodeErr: err}, nil
	}
	return &p, nil
}
