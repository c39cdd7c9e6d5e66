package ombi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/springjools/ombibot/internal/logging"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
)

// DefaultTimeout matches the catalog request timeout of the engine.
const DefaultTimeout = 30 * time.Second

// DefaultLanguage is sent with every search and request.
const DefaultLanguage = "en"

// userAgent is what the Ombi server expects from API clients.
const userAgent = "Ombi/server"

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Operation names, as reported in CatalogError.Op.
const (
	OpSearchTitle       = "search_title"
	OpSearchContributor = "search_contributor"
	OpFetchDetail       = "fetch_detail"
	OpFindSimilar       = "find_similar"
	OpSubmitRequest     = "submit_request"
)

// StatusError captures non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ombi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client is a ports.CatalogClient backed by the Ombi v1 REST API.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *http.Client
	codec      codec.Codec
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (default: 30s timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLanguage sets the languageCode sent upstream.
func WithLanguage(code string) Option {
	return func(c *Client) {
		if code = strings.TrimSpace(code); code != "" {
			c.language = code
		}
	}
}

// WithCodec sets the codec used to vet item ids before they reach a menu.
func WithCodec(cd codec.Codec) Option {
	return func(c *Client) {
		c.codec = cd
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Endpoint builds "<server>:<port><baseURL>/api/v1". A zero port is omitted.
func Endpoint(server string, port int, baseURL string) string {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if port > 0 {
		server += ":" + strconv.Itoa(port)
	}
	baseURL = strings.Trim(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		server += "/" + baseURL
	}
	return server + "/api/v1"
}

// NewClient creates a client for the API rooted at endpoint (see Endpoint).
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("ombi: endpoint must not be empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("ombi: invalid endpoint: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ombi: api key must not be empty")
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		language:   DefaultLanguage,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchByTitle runs GET /Search/movie/{title}.
func (c *Client) SearchByTitle(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	raw, err := c.do(ctx, OpSearchTitle, http.MethodGet, "/Search/movie/"+url.PathEscape(query), nil, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeList(OpSearchTitle, raw)
}

// SearchByContributor runs POST /Search/movie/actor.
func (c *Client) SearchByContributor(ctx context.Context, query string) ([]domain.CatalogItem, error) {
	body := searchTermRequest{SearchTerm: query, LanguageCode: c.language}
	raw, err := c.do(ctx, OpSearchContributor, http.MethodPost, "/Search/movie/actor", body, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeList(OpSearchContributor, raw)
}

// FindSimilar runs POST /Search/movie/similar.
func (c *Client) FindSimilar(ctx context.Context, id domain.ItemID) ([]domain.CatalogItem, error) {
	body, err := c.movieRequest(OpFindSimilar, id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, OpFindSimilar, http.MethodPost, "/Search/movie/similar", body, nil)
	if err != nil {
		return nil, err
	}
	return c.decodeList(OpFindSimilar, raw)
}

// FetchDetail runs POST /Search/movie/info.
func (c *Client) FetchDetail(ctx context.Context, id domain.ItemID) (domain.CatalogItem, error) {
	body, err := c.movieRequest(OpFetchDetail, id)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	raw, err := c.do(ctx, OpFetchDetail, http.MethodPost, "/Search/movie/info", body, nil)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	return c.decodeDetail(OpFetchDetail, id, raw)
}

// SubmitRequest runs POST /Request/movie as account. The returned text is the
// server's message on success and its error message on refusal.
func (c *Client) SubmitRequest(ctx context.Context, id domain.ItemID, account string) (string, error) {
	body, err := c.movieRequest(OpSubmitRequest, id)
	if err != nil {
		return "", err
	}
	if account == "" {
		account = domain.GuestAccount
	}
	raw, err := c.do(ctx, OpSubmitRequest, http.MethodPost, "/Request/movie", body, http.Header{"UserName": {account}})
	if err != nil {
		return "", err
	}

	var resp requestResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", domain.NewProtocolError(OpSubmitRequest, http.StatusOK, fmt.Errorf("decode response: %w", err))
	}
	if resp.Result {
		c.logger.Info("Ombi accepted request", "item", id, "account", account)
		return nonEmpty(resp.Message, "Request submitted."), nil
	}
	c.logger.Info("Ombi refused request", "item", id, "account", account, "reason", resp.ErrorMessage)
	return nonEmpty(resp.ErrorMessage, "The request was not accepted."), nil
}

type searchTermRequest struct {
	SearchTerm   string `json:"searchTerm"`
	LanguageCode string `json:"languageCode"`
}

type movieRequest struct {
	TheMovieDbID int64  `json:"theMovieDbId"`
	LanguageCode string `json:"languageCode"`
}

type requestResponse struct {
	Result       bool   `json:"result"`
	Message      string `json:"message"`
	ErrorMessage string `json:"errorMessage"`
}

// movieRequest builds the body of the id-keyed endpoints. Those take a numeric
// TheMovieDB id, so anything else fails before any I/O.
func (c *Client) movieRequest(op string, id domain.ItemID) (movieRequest, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return movieRequest{}, domain.NewProtocolError(op, 0, fmt.Errorf("item id %q is not numeric", id))
	}
	return movieRequest{TheMovieDbID: n, LanguageCode: c.language}, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body any, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, domain.NewProtocolError(op, 0, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	target := c.endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, domain.NewProtocolError(op, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("ApiKey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	c.logger.Debug("Ombi request", "op", op, "method", method, "url", target)
	return c.doJSONRequest(op, req)
}

func (c *Client) doJSONRequest(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, domain.NewTransportError(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewProtocolError(op, resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.Redacted(),
			Body:       truncate(strings.TrimSpace(string(raw)), 200),
		})
	}
	return raw, nil
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
