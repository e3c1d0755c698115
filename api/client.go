// Package api provides a client for NordVPN's public server catalog.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sveliz/nordctl/common"
)

// Doer allows tests to stub the HTTP transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the NordVPN public server catalog. It performs no
// retries; retry policy belongs to callers. Every request is bounded by
// the passed context in addition to the transport timeout.
type Client struct {
	baseURL string
	client  Doer
}

// NewClient creates a catalog client. An empty baseURL selects the public
// API endpoint; a nil doer selects a plain HTTP client with the default
// request timeout.
func NewClient(baseURL string, doer Doer) *Client {
	if baseURL == "" {
		baseURL = common.DefaultAPIBaseURL
	}
	if doer == nil {
		doer = &http.Client{Timeout: common.RequestTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  doer,
	}
}

// NormalizeHostname appends the provider suffix to bare server names.
// Applying it twice yields the same result.
func NormalizeHostname(hostname string) string {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return hostname
	}
	if !strings.HasSuffix(hostname, common.HostnameSuffix) {
		hostname += common.HostnameSuffix
	}
	return hostname
}

// Countries returns all countries known to the catalog.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	var countries []Country
	if err := c.get(ctx, "/v1/servers/countries", "", &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// CountryByCode finds a country by its two-letter code, case-insensitively.
// It returns nil when the catalog knows no such country.
func (c *Client) CountryByCode(ctx context.Context, code string) (*Country, error) {
	countries, err := c.Countries(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for i := range countries {
		if strings.ToUpper(countries[i].Code) == code {
			return &countries[i], nil
		}
	}
	return nil, nil
}

// Recommendations returns servers the provider recommends, best first.
// A nil countryID means worldwide.
func (c *Client) Recommendations(ctx context.Context, countryID *int, limit int) ([]Server, error) {
	query := fmt.Sprintf("limit=%d", limit)
	if countryID != nil {
		// The catalog requires the bracketed filter keys verbatim;
		// URL-encoding the brackets breaks the endpoint.
		query += fmt.Sprintf("&filters[country_id]=%d", *countryID)
	}

	var servers []Server
	if err := c.get(ctx, "/v1/servers/recommendations", query, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Servers returns OpenVPN-UDP servers, optionally restricted to a country.
func (c *Client) Servers(ctx context.Context, countryID *int, limit int) ([]Server, error) {
	query := fmt.Sprintf("limit=%d&filters[servers_technologies][identifier]=%s", limit, TechOpenVPNUDP)
	if countryID != nil {
		query += fmt.Sprintf("&filters[country_id]=%d", *countryID)
	}

	var servers []Server
	if err := c.get(ctx, "/v1/servers", query, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// ServerByHostname finds a specific server. The hostname is normalized
// before the query; nil is returned when the catalog reports no match.
func (c *Client) ServerByHostname(ctx context.Context, hostname string) (*Server, error) {
	hostname = NormalizeHostname(hostname)
	query := fmt.Sprintf("filters[hostname]=%s&limit=1", hostname)

	var servers []Server
	if err := c.get(ctx, "/v1/servers", query, &servers); err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, nil
	}
	return &servers[0], nil
}

// get issues one GET against the catalog and decodes the JSON reply.
// The query string is attached as-is: the catalog's filter keys contain
// literal brackets that must not be percent-encoded, so the query is
// assembled by hand and never passed through url.Values.
func (c *Client) get(ctx context.Context, path, query string, v interface{}) error {
	url := c.baseURL + path
	if query != "" {
		url += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", common.AppName)

	common.LogDebug("catalog GET %s", url)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &common.HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrParse, err)
	}
	return nil
}
