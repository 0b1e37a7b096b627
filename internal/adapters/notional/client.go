package notional

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Rate limit conservador para la API pública.
	apiRatePerSec = 5
	apiBurst      = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// ErrAccountNotFound se devuelve cuando la API responde 404 para la cuenta.
var ErrAccountNotFound = errors.New("notional: account not found")

// Client es el HTTP client de la API de riesgo de Notional con rate limiting y retries.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	retries int
	wait    time.Duration
}

// NewClient crea un Client contra el base URL dado (sin barra final).
func NewClient(base string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(apiRatePerSec, apiBurst),
		retries: maxRetries,
		wait:    baseRetryWait,
	}
}

// WithRetryWait cambia la espera base del backoff. Pensado para tests.
func (c *Client) WithRetryWait(d time.Duration) *Client {
	c.wait = d
	return c
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// Reintenta errores de red, 429 y 5xx; el resto de 4xx falla en el acto.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == c.retries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.retries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, c.retries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return ErrAccountNotFound
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", c.retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.wait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
