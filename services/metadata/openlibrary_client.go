package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"reviewverso/internal/apierror"
)

const (
	defaultOpenLibraryBaseURL = "https://openlibrary.org"
	openLibraryPageSize       = 20
	openLibraryAttempts       = 3
	openLibrarySearchFields   = "key,title,author_name,cover_i,cover_edition_key,first_publish_year," +
		"subject,ratings_average,ratings_count,number_of_pages_median"
)

// OpenLibraryError reports a non-OK OpenLibrary response.
type OpenLibraryError struct {
	Status int
	URL    string
}

func (e *OpenLibraryError) Error() string {
	return fmt.Sprintf("OpenLibraryError %d for %s", e.Status, e.URL)
}

// openLibraryClient calls the OpenLibrary REST API. It is the only client
// that retries: 5xx and transport failures are attempted up to three times
// with delays of one and then two retry steps.
type openLibraryClient struct {
	baseURL    string
	httpc      HTTPDoer
	retryDelay time.Duration
	attempts   uint
}

func newOpenLibraryClient(baseURL string, httpc HTTPDoer, retryDelay time.Duration) *openLibraryClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenLibraryBaseURL
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &openLibraryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpc:      httpc,
		retryDelay: retryDelay,
		attempts:   openLibraryAttempts,
	}
}

// fetchOnce performs a single GET and returns the body of a 200 response.
func (c *openLibraryClient) fetchOnce(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("openlibrary: create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apierror.FromTransport("openlibrary", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &apierror.Error{
			Op:     "openlibrary",
			Status: resp.StatusCode,
			Err:    &OpenLibraryError{Status: resp.StatusCode, URL: u},
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.FromTransport("openlibrary", err)
	}
	return body, nil
}

// fetch GETs u with the retry policy and returns the final body or the last error.
func (c *openLibraryClient) fetch(ctx context.Context, u string) ([]byte, error) {
	attempt := 0
	return retry.DoWithData(
		func() ([]byte, error) {
			attempt++
			return c.fetchOnce(ctx, u)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && apierror.IsRetryable(err)
		}),
		retry.LastErrorOnly(true),
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			// attempt is the number of calls made so far: wait 1x, then 2x.
			return time.Duration(attempt) * c.retryDelay
		}),
		retry.OnRetry(func(_ uint, err error) {
			log.Printf("[openlibrary] attempt %d/%d failed url=%s: %v", attempt, c.attempts, u, err)
		}),
	)
}

func (c *openLibraryClient) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	body, err := c.fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("openlibrary: decode %s: %w", path, err)
	}
	return nil
}

type olSearchResponse struct {
	NumFound int               `json:"numFound"`
	Start    int               `json:"start"`
	Docs     []OpenLibraryWork `json:"docs"`
}

type olWorksResponse struct {
	WorkCount int               `json:"work_count"`
	Works     []OpenLibraryWork `json:"works"`
}

func (c *openLibraryClient) searchBooks(ctx context.Context, query string, page int) (olSearchResponse, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(openLibraryPageSize))
	q.Set("fields", openLibrarySearchFields)
	var resp olSearchResponse
	err := c.getJSON(ctx, "/search.json", q, &resp)
	return resp, err
}

func (c *openLibraryClient) trendingBooks(ctx context.Context, page int) (olWorksResponse, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(openLibraryPageSize))
	var resp olWorksResponse
	err := c.getJSON(ctx, "/trending/daily.json", q, &resp)
	return resp, err
}

func (c *openLibraryClient) subjectBooks(ctx context.Context, subject string, page int) (olWorksResponse, error) {
	if page < 1 {
		page = 1
	}
	subject = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(subject), " ", "_"))
	q := url.Values{}
	q.Set("limit", strconv.Itoa(openLibraryPageSize))
	q.Set("offset", strconv.Itoa((page-1)*openLibraryPageSize))
	var resp olWorksResponse
	err := c.getJSON(ctx, "/subjects/"+url.PathEscape(subject)+".json", q, &resp)
	return resp, err
}

func (c *openLibraryClient) work(ctx context.Context, id string) (OpenLibraryWork, error) {
	var resp OpenLibraryWork
	err := c.getJSON(ctx, "/works/"+url.PathEscape(id)+".json", nil, &resp)
	return resp, err
}

func (c *openLibraryClient) ratings(ctx context.Context, id string) (olRatingsBlock, error) {
	var resp olRatingsBlock
	err := c.getJSON(ctx, "/works/"+url.PathEscape(id)+"/ratings.json", nil, &resp)
	return resp, err
}

func (c *openLibraryClient) authorName(ctx context.Context, key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/authors/")
	if key == "" {
		return "", nil
	}
	var resp struct {
		Name         string `json:"name"`
		PersonalName string `json:"personal_name"`
	}
	if err := c.getJSON(ctx, "/authors/"+url.PathEscape(key)+".json", nil, &resp); err != nil {
		return "", err
	}
	return firstNonEmpty(resp.Name, resp.PersonalName), nil
}

// editionWork returns the work ID an edition (OL...M) belongs to.
func (c *openLibraryClient) editionWork(ctx context.Context, editionID string) (string, error) {
	var resp struct {
		Works []struct {
			Key string `json:"key"`
		} `json:"works"`
	}
	if err := c.getJSON(ctx, "/books/"+url.PathEscape(editionID)+".json", nil, &resp); err != nil {
		return "", err
	}
	for _, w := range resp.Works {
		if id := strings.TrimPrefix(strings.TrimSpace(w.Key), "/works/"); id != "" {
			return id, nil
		}
	}
	return "", apierror.FromStatus("openlibrary edition "+editionID, http.StatusNotFound, "edition has no work")
}
