// Package upstream implements HTTP clients for the three upstream services:
// the geocoder, the store locator, and the inventory checker. All calls
// share the auth headers, the response envelope, and the retry policy for
// transient failures.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/stock-locator-service/internal/config"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// Client issues authenticated calls against the upstream APIs.
type Client struct {
	http *http.Client

	geocodeBase   string
	storesBase    string
	inventoryBase string
	apiKey        string
	jwtToken      string
	retryMax      uint64
}

// New builds a Client from the service configuration.
func New(cfg config.Config) *Client {
	return &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		geocodeBase:   cfg.GeocodeBaseURL,
		storesBase:    cfg.StoresBaseURL,
		inventoryBase: cfg.InventoryBaseURL,
		apiKey:        cfg.APIKey,
		jwtToken:      cfg.JWTToken,
		retryMax:      uint64(cfg.UpstreamRetryMax),
	}
}

// envelope is the shared upstream response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *apiError       `json:"error"`
	Timestamp string          `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// knownCodes are envelope error codes passed through to the taxonomy
// verbatim; anything else maps to UPSTREAM_ERROR.
var knownCodes = map[model.Code]bool{
	model.CodeInvalidPostcode:      true,
	model.CodeNoStoresFound:        true,
	model.CodeRateLimited:          true,
	model.CodePartialFailure:       true,
	model.CodeAllStoresUnreachable: true,
	model.CodeGeocodeUnavailable:   true,
}

func (e *apiError) toDomain() *model.Error {
	code := model.Code(e.Code)
	if !knownCodes[code] {
		code = model.CodeUpstreamError
	}
	return model.NewError(code, e.Message, e.Details, nil)
}

// doJSON performs one upstream call with retries, decoding data into out.
// Network errors and 5xx responses are retried with exponential backoff and
// jitter; 4xx responses and envelope-level errors are permanent.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	op := func() error {
		var rd io.Reader
		if reqBody != nil {
			rd = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.jwtToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.jwtToken)
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err // transient: connection refused, timeout, ...
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("upstream status %d", resp.StatusCode)
		}

		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode envelope: %w", err))
		}
		if !env.Success {
			if env.Error != nil {
				return backoff.Permanent(env.Error.toDomain())
			}
			return backoff.Permanent(fmt.Errorf("upstream status %d without error payload", resp.StatusCode))
		}
		if out != nil {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode data: %w", err))
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.retryMax), ctx))
	return wrapTransport(err)
}

// wrapTransport folds non-domain failures into the closed taxonomy.
func wrapTransport(err error) error {
	if err == nil {
		return nil
	}
	var de *model.Error
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.CodeTimeout, "upstream call deadline exceeded", "", err)
	}
	return model.NewError(model.CodeUpstreamError, "upstream call failed", err.Error(), err)
}
