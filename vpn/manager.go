package vpn

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sveliz/nordctl/api"
	"github.com/sveliz/nordctl/common"
	"github.com/sveliz/nordctl/creds"
)

// scripter is the slice of the Tunnelblick bridge the manager drives.
type scripter interface {
	IsInstalled() bool
	IsRunning(ctx context.Context) bool
	Launch(ctx context.Context) error
	ListConfigs(ctx context.Context) ([]string, error)
	GetStatus(ctx context.Context) Status
	Connect(ctx context.Context, configName string, wait bool, timeout time.Duration) error
	Disconnect(ctx context.Context) error
}

// bundler is the slice of the bundle builder the manager uses.
type bundler interface {
	SetupServer(ctx context.Context, hostname, username, password string) (string, error)
}

// serverFinder resolves catalog queries into concrete servers.
type serverFinder interface {
	FindOptimalServer(ctx context.Context, countryCode, city string, maxLoad int) (*api.Server, error)
}

// ConnectRequest names the target of a connection. Exactly one of
// ServerHostname or CountryCode selects the resolution path; City only
// narrows a country query.
type ConnectRequest struct {
	ServerHostname string
	CountryCode    string
	City           string
	MaxLoad        int
}

// Manager orchestrates the full connect flow: resolve a server, ensure
// its bundle is installed and registered, then drive the bridge. All
// operations are idempotent.
type Manager struct {
	bridge  scripter
	builder bundler
	finder  serverFinder

	loadCreds      func() (creds.Credentials, error)
	connectTimeout time.Duration
	registerPoll   time.Duration
	registerWait   time.Duration
}

// NewManager wires a manager from its three collaborators.
func NewManager(bridge scripter, builder bundler, finder serverFinder) *Manager {
	return &Manager{
		bridge:         bridge,
		builder:        builder,
		finder:         finder,
		loadCreds:      creds.Load,
		connectTimeout: common.ConnectTimeout,
		registerPoll:   common.RegisterPollInterval,
		registerWait:   common.RegisterTimeout,
	}
}

// Connect resolves the request to a server, installs its configuration if
// needed, and connects. It returns the server actually used. Connecting
// while already connected to the same server is a no-op; to a different
// server it switches.
func (m *Manager) Connect(ctx context.Context, req ConnectRequest) (*api.Server, error) {
	if req.ServerHostname == "" && req.CountryCode == "" {
		return nil, fmt.Errorf("%w: a server or a country is required", common.ErrBadArguments)
	}
	if !m.bridge.IsInstalled() {
		return nil, common.ErrAppNotInstalled
	}

	credentials, err := m.loadCreds()
	if err != nil {
		return nil, err
	}

	if !m.bridge.IsRunning(ctx) {
		common.LogInfo("Tunnelblick not running, launching")
		if err := m.bridge.Launch(ctx); err != nil {
			return nil, err
		}
	}

	server, err := m.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	configName := ConfigName(server.Hostname)

	if st := m.bridge.GetStatus(ctx); st.State == StateConnected {
		if st.ConfigName == configName {
			common.LogInfo("already connected to %s", server.Hostname)
			return server, nil
		}
		common.LogInfo("switching from %s to %s", st.ConfigName, configName)
		if err := m.bridge.Disconnect(ctx); err != nil {
			return nil, err
		}
	}

	if err := m.ensureBundle(ctx, server.Hostname, credentials); err != nil {
		return nil, err
	}

	common.LogInfo("connecting to %s", server.Hostname)
	if err := m.bridge.Connect(ctx, configName, true, m.connectTimeout); err != nil {
		return nil, err
	}
	return server, nil
}

// Disconnect tears down any active connection. Disconnecting while
// already disconnected succeeds without touching the bridge further.
func (m *Manager) Disconnect(ctx context.Context) error {
	if !m.bridge.IsRunning(ctx) {
		return nil
	}
	if st := m.bridge.GetStatus(ctx); st.State == StateDisconnected {
		return nil
	}
	return m.bridge.Disconnect(ctx)
}

// Status returns the bridge's connection snapshot, mapping a stopped
// application to DISCONNECTED.
func (m *Manager) Status(ctx context.Context) Status {
	if !m.bridge.IsRunning(ctx) {
		return Status{State: StateDisconnected}
	}
	return m.bridge.GetStatus(ctx)
}

// resolve turns a request into a concrete server. An explicit hostname
// wins over a country query and never touches the catalog; the OpenVPN
// profile download fails later if the server does not exist.
func (m *Manager) resolve(ctx context.Context, req ConnectRequest) (*api.Server, error) {
	if req.ServerHostname != "" {
		return &api.Server{Hostname: api.NormalizeHostname(req.ServerHostname)}, nil
	}

	maxLoad := req.MaxLoad
	if maxLoad <= 0 {
		maxLoad = common.DefaultMaxLoad
	}
	server, err := m.finder.FindOptimalServer(ctx, req.CountryCode, req.City, maxLoad)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("%w: no server available for %s", common.ErrNoServer,
			strings.ToUpper(req.CountryCode))
	}
	return server, nil
}

// ensureBundle installs the server's configuration bundle when Tunnelblick
// does not already know it, then waits for it to appear in the bridge's
// configuration list. Installation goes through the GUI asynchronously,
// so registration is polled rather than assumed.
func (m *Manager) ensureBundle(ctx context.Context, hostname string, cr creds.Credentials) error {
	configName := ConfigName(hostname)

	configs, err := m.bridge.ListConfigs(ctx)
	if err == nil && common.StringInSlice(configName, configs) {
		return nil
	}

	common.LogInfo("installing configuration for %s", hostname)
	if _, err := m.builder.SetupServer(ctx, hostname, cr.Username, cr.Password); err != nil {
		return err
	}

	deadline := time.Now().Add(m.registerWait)
	for time.Now().Before(deadline) {
		configs, err := m.bridge.ListConfigs(ctx)
		if err == nil && common.StringInSlice(configName, configs) {
			return nil
		}
		if err := sleepCtx(ctx, m.registerPoll); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s not registered after %s; accept the Tunnelblick install prompt and retry",
		common.ErrTimeout, configName, m.registerWait)
}
