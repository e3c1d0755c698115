package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func poolServer(hostname, city string, load int) Server {
	return Server{
		Hostname: hostname,
		Load:     load,
		Status:   "online",
		Locations: []ServerLocation{{
			Country: Country{
				ID:   228,
				Name: "United States",
				Code: "US",
				City: &City{Name: city},
			},
		}},
	}
}

func TestPickOptimal(t *testing.T) {
	pool := []Server{
		poolServer("us5001.nordvpn.com", "New York", 55),
		poolServer("us5002.nordvpn.com", "Miami", 40),
		poolServer("us5003.nordvpn.com", "Miami", 25),
		poolServer("us5004.nordvpn.com", "Seattle", 10),
	}

	tests := []struct {
		name    string
		city    string
		maxLoad int
		want    string
	}{
		{"first under ceiling", "", 30, "us5003.nordvpn.com"},
		{"city narrows pool", "miami", 30, "us5003.nordvpn.com"},
		{"city narrows then ceiling", "miami", 45, "us5002.nordvpn.com"},
		{"unknown city falls back", "zurich", 30, "us5003.nordvpn.com"},
		{"all over ceiling picks lowest", "new york", 5, "us5001.nordvpn.com"},
		{"ceiling zero picks argmin", "", 0, "us5004.nordvpn.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PickOptimal(pool, tt.city, tt.maxLoad)
			if got == nil {
				t.Fatal("PickOptimal() = nil")
			}
			if got.Hostname != tt.want {
				t.Errorf("PickOptimal() = %s, want %s", got.Hostname, tt.want)
			}
		})
	}
}

func TestPickOptimalEmptyPool(t *testing.T) {
	if got := PickOptimal(nil, "", 30); got != nil {
		t.Errorf("PickOptimal(nil) = %+v, want nil", got)
	}
}

func TestPickOptimalDeterministic(t *testing.T) {
	pool := []Server{
		poolServer("us5001.nordvpn.com", "Miami", 20),
		poolServer("us5002.nordvpn.com", "Miami", 20),
	}
	first := PickOptimal(pool, "miami", 30)
	for i := 0; i < 5; i++ {
		if got := PickOptimal(pool, "miami", 30); got.Hostname != first.Hostname {
			t.Fatalf("selection not deterministic: %s vs %s", got.Hostname, first.Hostname)
		}
	}
}

// seqDoer serves a different canned body per request, in order.
type seqDoer struct {
	bodies []string
	urls   []string
}

func (s *seqDoer) Do(req *http.Request) (*http.Response, error) {
	s.urls = append(s.urls, req.URL.String())
	body := "[]"
	if len(s.bodies) > 0 {
		body = s.bodies[0]
		s.bodies = s.bodies[1:]
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}, nil
}

func TestFindOptimalServer(t *testing.T) {
	doer := &seqDoer{bodies: []string{
		`[{"id":228,"name":"United States","code":"US"}]`,
		`[{"id":1,"hostname":"us5090.nordvpn.com","load":12,"status":"online",
		  "locations":[{"country":{"id":228,"name":"United States","code":"US",
		  "city":{"id":1,"name":"Miami"}}}],
		  "technologies":[{"id":3,"identifier":"openvpn_udp"}]}]`,
	}}
	c := NewClient("https://catalog.test", doer)

	server, err := c.FindOptimalServer(context.Background(), "us", "", 30)
	if err != nil {
		t.Fatalf("FindOptimalServer() error = %v", err)
	}
	if server == nil || server.Hostname != "us5090.nordvpn.com" {
		t.Fatalf("server = %+v", server)
	}

	if len(doer.urls) != 2 {
		t.Fatalf("requests = %v", doer.urls)
	}
	if !strings.Contains(doer.urls[1], "filters[country_id]=228") {
		t.Errorf("recommendations url %q lacks the country filter", doer.urls[1])
	}
}

func TestFindOptimalServerUnknownCountry(t *testing.T) {
	doer := &seqDoer{bodies: []string{`[{"id":81,"name":"Germany","code":"DE"}]`}}
	c := NewClient("https://catalog.test", doer)

	server, err := c.FindOptimalServer(context.Background(), "aq", "", 30)
	if err != nil {
		t.Fatalf("FindOptimalServer() error = %v", err)
	}
	if server != nil {
		t.Errorf("server = %+v, want nil for an unknown country", server)
	}
	if len(doer.urls) != 1 {
		t.Errorf("recommendations queried for an unknown country: %v", doer.urls)
	}
}
