// Package registry provides a client for BankFind-style bank registry
// REST APIs. It fetches institution records and converts them to
// observations for the reconciliation engine.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/orchestrate"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

const (
	// DefaultBaseURL is the public bank registry API endpoint.
	DefaultBaseURL = "https://banks.data.fdic.gov/api"

	defaultTimeout = 30 * time.Second
	userAgent      = "bankatlas/1.0"

	listFields   = "NAME,CERT,RSSDID,ASSET,CITY,STALP,DATEUPDT,REPDTE,CHARTER,REGAGENT"
	detailFields = listFields + ",WEBADDR,OFFICES,EMPLOYEES"
)

// institutionsResponse is the registry's institutions envelope.
type institutionsResponse struct {
	Data []institutionRow `json:"data"`
}

// institutionRow is one institution record. The registry reports asset
// totals in thousands of dollars as strings.
type institutionRow struct {
	Name    string          `json:"NAME"`
	CertID  int             `json:"CERT"`
	RSSDID  int             `json:"RSSDID"`
	Assets  json.RawMessage `json:"ASSET"`
	City    string          `json:"CITY"`
	State   string          `json:"STALP"`
	Website string          `json:"WEBADDR"`
}

// Client queries a bank registry API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the registry endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIKey sets the registry API key, sent as a query parameter.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTimeout overrides the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client, used in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock overrides the observation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a registry client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source implements orchestrate.Collector.
func (c *Client) Source() sources.Type { return sources.RegistryAPI }

// Fetch implements orchestrate.Collector: it looks up the target by cert
// id when known, by name otherwise, and returns at most one observation.
func (c *Client) Fetch(ctx context.Context, target orchestrate.Target) ([]entities.Observation, error) {
	var (
		row *institutionRow
		err error
	)
	if target.CertID > 0 {
		row, err = c.lookupByCert(ctx, target.CertID)
	} else {
		row, err = c.lookupByName(ctx, target.Name)
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return []entities.Observation{c.toObservation(*row, 0)}, nil
}

// TopBanksByAssets returns observations for the largest active
// institutions, ranked by total assets. The returned observations carry
// their asset rank (1-based).
func (c *Client) TopBanksByAssets(ctx context.Context, limit int) ([]entities.Observation, error) {
	params := url.Values{
		"filters":    {"ACTIVE:1"},
		"fields":     {listFields},
		"sort_by":    {"ASSET"},
		"sort_order": {"DESC"},
		"limit":      {strconv.Itoa(limit)},
		"format":     {"json"},
	}

	rows, err := c.institutions(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]entities.Observation, 0, len(rows))
	for i, row := range rows {
		out = append(out, c.toObservation(row, i+1))
	}
	return out, nil
}

// BankDetail returns the full record for one institution by cert id, or
// nil when the registry has no such institution.
func (c *Client) BankDetail(ctx context.Context, certID int) (*entities.Observation, error) {
	row, err := c.lookupByCert(ctx, certID)
	if err != nil || row == nil {
		return nil, err
	}
	obs := c.toObservation(*row, 0)
	return &obs, nil
}

func (c *Client) lookupByCert(ctx context.Context, certID int) (*institutionRow, error) {
	params := url.Values{
		"filters": {"CERT:" + strconv.Itoa(certID)},
		"fields":  {detailFields},
		"format":  {"json"},
	}
	rows, err := c.institutions(ctx, params)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (c *Client) lookupByName(ctx context.Context, name string) (*institutionRow, error) {
	params := url.Values{
		"search": {"NAME:" + name},
		"fields": {detailFields},
		"limit":  {"1"},
		"format": {"json"},
	}
	rows, err := c.institutions(ctx, params)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (c *Client) institutions(ctx context.Context, params url.Values) ([]institutionRow, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	endpoint := c.baseURL + "/institutions?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewCollectorError("registry-api", "", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewCollectorError("registry-api", "", "fetch institutions", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewCollectorError("registry-api", "", "fetch institutions",
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	var result institutionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewCollectorError("registry-api", "", "decode institutions", err)
	}
	return result.Data, nil
}

// toObservation converts an institution row to a bank observation.
// assetRank is 1-based; 0 means unranked.
func (c *Client) toObservation(row institutionRow, assetRank int) entities.Observation {
	obs := entities.NewBankObservation(sources.RegistryAPI, strings.TrimSpace(row.Name), c.now())
	obs.CertID = row.CertID
	obs.Verified = true

	obs = obs.WithField(entities.FieldBankName, strings.TrimSpace(row.Name))
	if row.CertID > 0 {
		obs = obs.WithField(entities.FieldCertID, row.CertID)
	}
	if row.RSSDID > 0 {
		obs = obs.WithField(entities.FieldRSSDID, row.RSSDID)
	}
	if assetRank > 0 {
		obs = obs.WithField(entities.FieldAssetRank, assetRank)
	}
	if millions := assetMillions(row.Assets); millions > 0 {
		obs = obs.WithField(entities.FieldTotalAssets, millions)
	}
	if city := strings.TrimSpace(row.City); city != "" {
		obs = obs.WithField(entities.FieldHQCity, city)
	}
	if state := strings.TrimSpace(row.State); state != "" {
		obs = obs.WithField(entities.FieldHQState, state)
	}
	if site := strings.TrimSpace(row.Website); site != "" {
		obs = obs.WithField(entities.FieldWebsite, site)
	}
	return obs
}

// assetMillions parses the registry's ASSET column, reported in thousands
// of dollars as either a JSON number or a string, into millions.
func assetMillions(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" || s == "null" {
		return 0
	}
	thousands, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return thousands / 1000
}
