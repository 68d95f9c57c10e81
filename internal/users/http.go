package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// HTTPClient resolves users against the user service's minimal-user
// endpoint with exponential-backoff retry on transient failures.
type HTTPClient struct {
	baseURL         string
	http            *http.Client
	retryMaxElapsed time.Duration
}

type HTTPClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RetryMaxElapsed time.Duration
}

func NewHTTPClient(conf HTTPClientConfig) *HTTPClient {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	}
	return &HTTPClient{
		baseURL:         conf.BaseURL,
		http:            &http.Client{Transport: tr, Timeout: conf.Timeout},
		retryMaxElapsed: conf.RetryMaxElapsed,
	}
}

func (c *HTTPClient) MinimalUser(ctx context.Context, userID string) (*models.MinimalUser, error) {
	endpoint := c.baseURL + "/v1/users/" + url.PathEscape(userID) + "/minimal"

	var user *models.MinimalUser
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// unknown user, not an error
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("user service: status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("user service: status %d", resp.StatusCode))
		}

		var u models.MinimalUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return backoff.Permanent(err)
		}
		user = &u
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.retryMaxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return user, nil
}
