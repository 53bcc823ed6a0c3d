package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reviewverso/internal/apierror"
)

const (
	defaultIGDBBaseURL = "https://api.igdb.com/v4"
	igdbPageSize       = 20
	gameFields         = "fields id,name,summary,storyline,rating,rating_count,first_release_date," +
		"cover.image_id,screenshots.image_id,artworks.image_id,genres.name,platforms.name," +
		"involved_companies.company.name,involved_companies.developer,involved_companies.publisher;"
)

// igdbClient issues Apicalypse queries against IGDB. Every request is a POST
// with a text body and Client-ID + Bearer credentials.
type igdbClient struct {
	clientID    string
	accessToken string
	baseURL     string
	httpc       HTTPDoer
	limiter     *rate.Limiter
}

func newIGDBClient(clientID, accessToken, baseURL string, httpc HTTPDoer) *igdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultIGDBBaseURL
	}
	return &igdbClient{
		clientID:    strings.TrimSpace(clientID),
		accessToken: strings.TrimSpace(accessToken),
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpc:       httpc,
		// IGDB allows 4 requests per second.
		limiter: rate.NewLimiter(rate.Limit(4), 4),
	}
}

func (c *igdbClient) newRequest(ctx context.Context, endpoint string, body io.Reader) (*http.Request, error) {
	if c.clientID == "" || c.accessToken == "" {
		return nil, ErrIGDBCredentialsMissing
	}
	endpoint = strings.Trim(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("igdb: create request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	return req, nil
}

func (c *igdbClient) query(ctx context.Context, endpoint, body string, v any) error {
	req, err := c.newRequest(ctx, endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	return send(ctx, c.httpc, c.limiter, "igdb POST /"+endpoint, req, v)
}

func igdbOffset(page int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * igdbPageSize
}

// escapeApicalypse quotes a user string for use inside an Apicalypse literal.
func escapeApicalypse(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (c *igdbClient) popularGames(ctx context.Context, page int) ([]IGDBGame, error) {
	body := fmt.Sprintf("%s where rating_count > 50 & cover != null; sort rating_count desc; limit %d; offset %d;",
		gameFields, igdbPageSize, igdbOffset(page))
	var games []IGDBGame
	err := c.query(ctx, "games", body, &games)
	return games, err
}

func (c *igdbClient) searchGames(ctx context.Context, query string, page int) ([]IGDBGame, error) {
	body := fmt.Sprintf(`search "%s"; %s limit %d; offset %d;`,
		escapeApicalypse(query), gameFields, igdbPageSize, igdbOffset(page))
	var games []IGDBGame
	err := c.query(ctx, "games", body, &games)
	return games, err
}

func (c *igdbClient) game(ctx context.Context, id int64) (IGDBGame, error) {
	body := fmt.Sprintf("%s where id = %d; limit 1;", gameFields, id)
	var games []IGDBGame
	if err := c.query(ctx, "games", body, &games); err != nil {
		return IGDBGame{}, err
	}
	if len(games) == 0 {
		return IGDBGame{}, apierror.FromStatus(fmt.Sprintf("igdb game %d", id), http.StatusNotFound, "")
	}
	return games[0], nil
}

// forward relays a raw Apicalypse request for the frontend proxy and returns
// the upstream response unread. The caller closes the body.
func (c *igdbClient) forward(ctx context.Context, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apierror.FromTransport("igdb proxy", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, apierror.FromTransport("igdb proxy", err)
	}
	return resp, nil
}
