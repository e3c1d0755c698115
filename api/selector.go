package api

import (
	"context"
	"strings"

	"github.com/sveliz/nordctl/common"
)

// PickOptimal chooses a server from a recommendation pool. The pool is
// assumed best-first, as returned by the recommendations endpoint, and the
// choice is deterministic given the pool:
//
//  1. When city is non-empty, narrow to servers whose city name contains
//     it (case-insensitive substring); an empty narrowing falls back to
//     the full pool rather than failing.
//  2. Return the first server in order whose load is at most maxLoad.
//  3. Otherwise return the lowest-load server.
//
// A nil result means the pool was empty.
func PickOptimal(pool []Server, city string, maxLoad int) *Server {
	candidates := pool
	if city != "" {
		cityLower := strings.ToLower(city)
		var narrowed []Server
		for _, s := range pool {
			if name := s.CityName(); name != "" && strings.Contains(strings.ToLower(name), cityLower) {
				narrowed = append(narrowed, s)
			}
		}
		if len(narrowed) > 0 {
			candidates = narrowed
		}
	}

	for i := range candidates {
		if candidates[i].Load <= maxLoad {
			return &candidates[i]
		}
	}

	var best *Server
	for i := range candidates {
		if best == nil || candidates[i].Load < best.Load {
			best = &candidates[i]
		}
	}
	return best
}

// FindOptimalServer resolves a country code and picks the optimal server
// from that country's recommendations. It returns nil when the country is
// unknown or has no servers.
func (c *Client) FindOptimalServer(ctx context.Context, countryCode, city string, maxLoad int) (*Server, error) {
	country, err := c.CountryByCode(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if country == nil {
		return nil, nil
	}

	pool, err := c.Recommendations(ctx, &country.ID, common.RecommendationPoolSize)
	if err != nil {
		return nil, err
	}

	return PickOptimal(pool, city, maxLoad), nil
}
