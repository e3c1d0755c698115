package vpn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sveliz/nordctl/api"
)

type fakeBridge struct {
	status Status
}

func (f *fakeBridge) GetStatus(context.Context) Status { return f.status }

type fakeCatalog struct {
	server *api.Server
	err    error
	calls  int
}

func (f *fakeCatalog) ServerByHostname(context.Context, string) (*api.Server, error) {
	f.calls++
	return f.server, f.err
}

func TestHostnameFromConfig(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"us5090.nordvpn.com.udp", "us5090.nordvpn.com"},
		{"de750.nordvpn.com.udp", "de750.nordvpn.com"},
		{"US5090.nordvpn.com.udp", "us5090.nordvpn.com"},
		{"office-vpn", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HostnameFromConfig(tt.input); got != tt.want {
			t.Errorf("HostnameFromConfig(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestReconcileDisconnected(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	}))
	defer srv.Close()

	catalog := &fakeCatalog{}
	for _, state := range []State{StateDisconnected, StateConnecting, StateUnknown} {
		r := NewReconciler(&fakeBridge{status: Status{State: state}}, catalog)
		r.ipifyURL = srv.URL
		r.ipinfoBaseURL = srv.URL

		cs := r.Reconcile(context.Background())
		if cs.Connected {
			t.Errorf("state %s: Connected = true", state)
		}
		if cs.PublicIP != "" || cs.City != "" || cs.Country != "" {
			t.Errorf("state %s: fields populated on disconnected status: %+v", state, cs)
		}
	}
	if n := probes.Load(); n != 0 {
		t.Errorf("%d probes made while not connected, want 0", n)
	}
	if catalog.calls != 0 {
		t.Errorf("%d catalog lookups made while not connected, want 0", catalog.calls)
	}
}

func TestReconcileConnected(t *testing.T) {
	ipSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer ipSrv.Close()
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":"Miami","country":"US"}`))
	}))
	defer geoSrv.Close()

	bridge := &fakeBridge{status: Status{State: StateConnected, ConfigName: "us5090.nordvpn.com.udp"}}
	catalog := &fakeCatalog{server: &api.Server{Hostname: "us5090.nordvpn.com", Load: 17}}

	r := NewReconciler(bridge, catalog)
	r.ipifyURL = ipSrv.URL
	r.ipinfoBaseURL = geoSrv.URL

	cs := r.Reconcile(context.Background())
	if !cs.Connected {
		t.Fatal("Connected = false")
	}
	if cs.ServerHostname != "us5090.nordvpn.com" {
		t.Errorf("ServerHostname = %q", cs.ServerHostname)
	}
	if cs.PublicIP != "203.0.113.7" {
		t.Errorf("PublicIP = %q", cs.PublicIP)
	}
	if cs.City != "Miami" || cs.Country != "US" {
		t.Errorf("location = %q, %q", cs.City, cs.Country)
	}
	if !cs.HasLoad || cs.Load != 17 {
		t.Errorf("Load = %d (HasLoad %v), want 17", cs.Load, cs.HasLoad)
	}
}

func TestReconcilePartialFailures(t *testing.T) {
	ipSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ipSrv.Close()

	bridge := &fakeBridge{status: Status{State: StateConnected, ConfigName: "us5090.nordvpn.com.udp"}}
	catalog := &fakeCatalog{err: errors.New("catalog down")}

	r := NewReconciler(bridge, catalog)
	r.ipifyURL = ipSrv.URL
	r.ipinfoBaseURL = ipSrv.URL

	cs := r.Reconcile(context.Background())
	if !cs.Connected {
		t.Fatal("Connected = false despite CONNECTED bridge state")
	}
	if cs.ServerHostname != "us5090.nordvpn.com" {
		t.Errorf("ServerHostname = %q", cs.ServerHostname)
	}
	if cs.PublicIP != "" || cs.City != "" || cs.HasLoad {
		t.Errorf("failed probes populated fields: %+v", cs)
	}
}

func TestReconcileCatalogBackfill(t *testing.T) {
	ipSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ipSrv.Close()

	bridge := &fakeBridge{status: Status{State: StateConnected, ConfigName: "de123.nordvpn.com.udp"}}
	catalog := &fakeCatalog{server: &api.Server{
		Hostname: "de123.nordvpn.com",
		Load:     14,
		Locations: []api.ServerLocation{{
			Country: api.Country{
				Name: "Germany",
				Code: "DE",
				City: &api.City{Name: "Frankfurt"},
			},
		}},
	}}

	r := NewReconciler(bridge, catalog)
	r.ipifyURL = ipSrv.URL
	r.ipinfoBaseURL = ipSrv.URL

	cs := r.Reconcile(context.Background())
	if !cs.Connected || cs.ServerHostname != "de123.nordvpn.com" {
		t.Fatalf("status = %+v", cs)
	}
	if cs.PublicIP != "" {
		t.Errorf("PublicIP = %q, want empty after failed probe", cs.PublicIP)
	}
	if !cs.HasLoad || cs.Load != 14 {
		t.Errorf("Load = %d (HasLoad %v), want 14", cs.Load, cs.HasLoad)
	}
	if cs.City != "Frankfurt" || cs.Country != "Germany" {
		t.Errorf("location = %q, %q, want catalog backfill", cs.City, cs.Country)
	}
}

func TestReconcileNilCatalog(t *testing.T) {
	ipSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.7"))
	}))
	defer ipSrv.Close()
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"city":"Miami","country":"US"}`))
	}))
	defer geoSrv.Close()

	bridge := &fakeBridge{status: Status{State: StateConnected, ConfigName: "us5090.nordvpn.com.udp"}}
	r := NewReconciler(bridge, nil)
	r.ipifyURL = ipSrv.URL
	r.ipinfoBaseURL = geoSrv.URL

	cs := r.Reconcile(context.Background())
	if !cs.Connected || cs.HasLoad {
		t.Errorf("unexpected status: %+v", cs)
	}
}

func TestConnectionStatusString(t *testing.T) {
	off := &ConnectionStatus{}
	if off.String() != "disconnected" {
		t.Errorf("String() = %q", off.String())
	}

	on := &ConnectionStatus{
		Connected:      true,
		ServerHostname: "us5090.nordvpn.com",
		City:           "Miami",
		Country:        "US",
		Load:           17,
		HasLoad:        true,
		PublicIP:       "203.0.113.7",
	}
	want := "connected to us5090.nordvpn.com (Miami, US) load 17% ip 203.0.113.7"
	if on.String() != want {
		t.Errorf("String() = %q, want %q", on.String(), want)
	}
}
