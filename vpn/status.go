package vpn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sveliz/nordctl/api"
	"github.com/sveliz/nordctl/common"
)

// hostnamePattern extracts a server hostname from a Tunnelblick config
// name such as "us5090.nordvpn.com.udp".
var hostnamePattern = regexp.MustCompile(`(?i)^([a-z]{2}\d+\.nordvpn\.com)`)

// ConnectionStatus is the enriched connection picture shown to the user.
// The Tunnelblick state is authoritative; everything else is best effort
// and may be absent when a probe or catalog lookup fails.
type ConnectionStatus struct {
	Connected      bool
	ConfigName     string
	ServerHostname string
	PublicIP       string
	City           string
	Country        string
	Load           int
	HasLoad        bool
}

// String renders a terse one-line summary.
func (cs *ConnectionStatus) String() string {
	if !cs.Connected {
		return "disconnected"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "connected to %s", cs.ServerHostname)
	if loc := joinNonEmpty(cs.City, cs.Country); loc != "" {
		fmt.Fprintf(&b, " (%s)", loc)
	}
	if cs.HasLoad {
		fmt.Fprintf(&b, " load %d%%", cs.Load)
	}
	if cs.PublicIP != "" {
		fmt.Fprintf(&b, " ip %s", cs.PublicIP)
	}
	return b.String()
}

// statusBridge is the slice of the scripting bridge the reconciler needs.
type statusBridge interface {
	GetStatus(ctx context.Context) Status
}

// statusCatalog is the slice of the catalog client the reconciler needs.
type statusCatalog interface {
	ServerByHostname(ctx context.Context, hostname string) (*api.Server, error)
}

// Reconciler combines the Tunnelblick state with external observations
// (public IP, geolocation, catalog metadata) into one ConnectionStatus.
type Reconciler struct {
	bridge  statusBridge
	catalog statusCatalog
	client  *http.Client

	// probe endpoints, overridable in tests
	ipifyURL      string
	ipinfoBaseURL string
}

// NewReconciler creates a reconciler over the given bridge and catalog.
// The catalog may be nil; load metadata is then omitted.
func NewReconciler(bridge statusBridge, catalog statusCatalog) *Reconciler {
	return &Reconciler{
		bridge:        bridge,
		catalog:       catalog,
		client:        &http.Client{Timeout: common.ProbeTimeout},
		ipifyURL:      common.PublicIPURL,
		ipinfoBaseURL: common.IPInfoBaseURL,
	}
}

// Reconcile produces the current connection picture. When Tunnelblick does
// not report CONNECTED the result is a bare disconnected status and no
// network probes are made. Probe and catalog failures degrade individual
// fields, never the call.
func (r *Reconciler) Reconcile(ctx context.Context) *ConnectionStatus {
	st := r.bridge.GetStatus(ctx)
	if st.State != StateConnected {
		return &ConnectionStatus{Connected: false}
	}

	cs := &ConnectionStatus{
		Connected:      true,
		ConfigName:     st.ConfigName,
		ServerHostname: HostnameFromConfig(st.ConfigName),
	}

	if ip, err := r.PublicIP(ctx); err == nil {
		cs.PublicIP = ip
		if city, country, err := r.IPInfo(ctx, ip); err == nil {
			cs.City = city
			cs.Country = country
		} else {
			common.LogDebug("geolocation probe failed: %v", err)
		}
	} else {
		common.LogDebug("public IP probe failed: %v", err)
	}

	if r.catalog != nil && cs.ServerHostname != "" {
		if srv, err := r.catalog.ServerByHostname(ctx, cs.ServerHostname); err == nil && srv != nil {
			cs.Load = srv.Load
			cs.HasLoad = true
			if cs.City == "" {
				cs.City = srv.CityName()
			}
			if cs.Country == "" {
				cs.Country = srv.CountryName()
			}
		} else if err != nil {
			common.LogDebug("catalog lookup for %s failed: %v", cs.ServerHostname, err)
		}
	}

	return cs
}

// PublicIP returns the host's current public IP address as seen from the
// outside.
func (r *Reconciler) PublicIP(ctx context.Context) (string, error) {
	body, err := r.probe(ctx, r.ipifyURL)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("%w: empty public IP response", common.ErrParse)
	}
	return ip, nil
}

// IPInfo geolocates an IP address to a city and country.
func (r *Reconciler) IPInfo(ctx context.Context, ip string) (city, country string, err error) {
	body, err := r.probe(ctx, r.ipinfoBaseURL+"/"+ip+"/json")
	if err != nil {
		return "", "", err
	}

	var info struct {
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrParse, err)
	}
	return info.City, info.Country, nil
}

func (r *Reconciler) probe(ctx context.Context, url string) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, common.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building probe request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &common.HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	return io.ReadAll(resp.Body)
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// HostnameFromConfig extracts the server hostname from a Tunnelblick
// config name, or "" when the name does not follow the provider scheme.
func HostnameFromConfig(configName string) string {
	m := hostnamePattern.FindStringSubmatch(strings.ToLower(configName))
	if m == nil {
		return ""
	}
	return m[1]
}
