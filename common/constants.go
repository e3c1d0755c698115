package common

import "time"

// Application metadata.
const (
	// AppName is the name of the binary.
	AppName = "nordctl"
	// ConfigDirName is the name of the configuration directory
	// under ~/.config.
	ConfigDirName = "nordctl"
)

// File names used by the application.
const (
	ConfigFileName = "config.yaml"
	LogFileName    = "nordctl.log"
)

// Provider naming conventions.
const (
	// HostnameSuffix is appended to bare server names ("us5090").
	HostnameSuffix = ".nordvpn.com"
	// ConfigNameSuffix turns a hostname into a Tunnelblick config name.
	ConfigNameSuffix = ".udp"
	// BundleExtension is the Tunnelblick configuration bundle extension.
	BundleExtension = ".tblk"
	// ProviderTag identifies provider-owned configurations among the
	// entries Tunnelblick reports.
	ProviderTag = "nordvpn"
)

// Remote endpoints. The CDN base serves OpenVPN profiles, the API base the
// server catalog. Both can be overridden through the config file.
const (
	DefaultAPIBaseURL = "https://api.nordvpn.com"
	DefaultCDNBaseURL = "https://downloads.nordcdn.com"
	PublicIPURL       = "https://api.ipify.org"
	IPInfoBaseURL     = "https://ipinfo.io"
)

// Environment variables holding the NordVPN service credentials.
const (
	EnvUsername = "NORD_USER"
	EnvPassword = "NORD_PASS"
)

// Default timeouts and intervals.
const (
	// RequestTimeout bounds a single catalog or profile-download request.
	RequestTimeout = 30 * time.Second
	// ArchiveTimeout bounds the bulk ovpn.zip download.
	ArchiveTimeout = 120 * time.Second
	// ScriptTimeout bounds one osascript invocation.
	ScriptTimeout = 30 * time.Second
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout = 30 * time.Second
	// ConnectPollInterval is how often the connect wait loop samples state.
	ConnectPollInterval = 1 * time.Second
	// ProbeTimeout bounds the public-IP and geolocation probes.
	ProbeTimeout = 10 * time.Second
	// LaunchSettleDelay is how long Tunnelblick needs after launch before
	// it answers AppleScript.
	LaunchSettleDelay = 2 * time.Second
	// RegisterPollInterval is how often a freshly installed bundle is
	// looked for in Tunnelblick's configuration list.
	RegisterPollInterval = 500 * time.Millisecond
	// RegisterTimeout caps the registration poll after an install.
	RegisterTimeout = 10 * time.Second
)

// Catalog defaults.
const (
	// DefaultMaxLoad is the load ceiling used by server selection.
	DefaultMaxLoad = 30
	// DefaultServerLimit is how many servers the servers verb shows.
	DefaultServerLimit = 10
	// RecommendationPoolSize is how many recommendations selection
	// considers.
	RecommendationPoolSize = 20
)
