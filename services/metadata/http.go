package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"reviewverso/internal/apierror"
)

// HTTPDoer is the subset of *http.Client used by the provider clients.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

const maxErrorBody = 512

// send waits for the limiter, performs req and decodes a 2xx JSON body into v.
// Non-2xx responses become *apierror.Error carrying the status.
func send(ctx context.Context, httpc HTTPDoer, limiter *rate.Limiter, op string, req *http.Request, v any) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return apierror.FromTransport(op, err)
		}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return apierror.FromTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apierror.FromStatus(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
