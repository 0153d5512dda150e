package taxjar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.taxjar.com/v2/"

const (
	ratesPath         = "summary_rates"
	categoriesPath    = "categories"
	ratesLocationPath = "rates/%s"
	orderTaxesPath    = "taxes"
)

// ClientConfig configures the API client.
type ClientConfig struct {
	BaseURL    string
	AccessKey  string
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
}

// AddressQuery narrows a postal-code rate lookup. Empty fields are omitted.
type AddressQuery struct {
	Country string
	State   string
	City    string
	Street  string
}

func (q AddressQuery) values() url.Values {
	v := url.Values{}
	if q.Country != "" {
		v.Set("country", q.Country)
	}
	if q.State != "" {
		v.Set("state", q.State)
	}
	if q.City != "" {
		v.Set("city", q.City)
	}
	if q.Street != "" {
		v.Set("street", q.Street)
	}
	return v
}

// OrderRequest is the body of POST taxes.
type OrderRequest struct {
	ToCountry string            `json:"to_country"`
	Shipping  json.Number       `json:"shipping"`
	ToZip     string            `json:"to_zip,omitempty"`
	ToState   string            `json:"to_state,omitempty"`
	ToCity    string            `json:"to_city,omitempty"`
	ToStreet  string            `json:"to_street,omitempty"`
	Amount    json.Number       `json:"amount,omitempty"`
	LineItems []LineItemPayload `json:"line_items,omitempty"`
}

// Client calls the TaxJar v2 API. It does not retry.
type Client struct {
	baseURL    string
	accessKey  string
	userAgent  string
	httpClient *http.Client
}

// NewClient validates the configuration and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, improperlyConfigured("access key is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, improperlyConfigured("invalid base url %q: %v", base, err)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		accessKey:  cfg.AccessKey,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
	}, nil
}

// FetchCategories calls GET categories.
func (c *Client) FetchCategories(ctx context.Context) (CategoriesResponse, error) {
	var out CategoriesResponse
	err := c.do(ctx, http.MethodGet, categoriesPath, nil, nil, &out)
	return out, err
}

// FetchTaxRates calls GET summary_rates.
func (c *Client) FetchTaxRates(ctx context.Context) (SummaryRatesResponse, error) {
	var out SummaryRatesResponse
	err := c.do(ctx, http.MethodGet, ratesPath, nil, nil, &out)
	return out, err
}

// FetchTaxForAddress calls GET rates/{postal_code}.
func (c *Client) FetchTaxForAddress(ctx context.Context, postalCode string, query AddressQuery) (AddressRateResponse, error) {
	var out AddressRateResponse
	path := fmt.Sprintf(ratesLocationPath, url.PathEscape(postalCode))
	err := c.do(ctx, http.MethodGet, path, query.values(), nil, &out)
	return out, err
}

// FetchTaxForOrder calls POST taxes.
func (c *Client) FetchTaxForOrder(ctx context.Context, order OrderRequest) (OrderTaxResponse, error) {
	var out OrderTaxResponse
	body, err := json.Marshal(order)
	if err != nil {
		return out, errors.Wrap(err, "taxjar: encode order")
	}
	err = c.do(ctx, http.MethodPost, orderTaxesPath, nil, body, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Authorization", `Token token="`+c.accessKey+`"`)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		transportErr := &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: payload}
		// An error envelope is a configuration problem whatever the status.
		var env Envelope
		if json.Unmarshal(payload, &env) == nil && env.HasError() {
			return errors.Wrapf(errors.WithSecondaryError(ValidateData(env), transportErr),
				"taxjar: %s %s: status %d", method, path, resp.StatusCode)
		}
		return transportErr
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return errors.Wrapf(err, "taxjar: decode %s response", path)
	}
	return nil
}

// ValidateData rejects envelopes carrying a non-empty error field.
func ValidateData(env Envelope) error {
	if !env.HasError() {
		return nil
	}
	info := strings.TrimSpace(string(env.Error))
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Error); err == nil {
		info = compact.String()
	}
	if env.Detail == "" {
		return improperlyConfigured("api error %s", info)
	}
	return errors.WithDetail(improperlyConfigured("api error %s: %s", info, env.Detail), env.Detail)
}
