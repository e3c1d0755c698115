// Package cli implements the nordctl command surface. Each verb is a
// method on CLI; errors bubble up to main for exit-code handling.
package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/sveliz/nordctl/api"
	"github.com/sveliz/nordctl/common"
	"github.com/sveliz/nordctl/config"
	"github.com/sveliz/nordctl/creds"
	"github.com/sveliz/nordctl/vpn"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	styleBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// loadStyle colors a load percentage: green under 30, yellow to 70, red
// above.
func loadStyle(load int) lipgloss.Style {
	switch {
	case load < 30:
		return styleOK
	case load <= 70:
		return styleWarn
	default:
		return styleBad
	}
}

// CLI wires the catalog client, bundle builder, scripting bridge, and
// orchestrator behind the command verbs.
type CLI struct {
	cfg        *config.Config
	client     *api.Client
	bridge     *vpn.Tunnelblick
	builder    *vpn.Builder
	manager    *vpn.Manager
	reconciler *vpn.Reconciler
}

// New builds a fully wired CLI from the on-disk configuration.
func New() (*CLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	client := api.NewClient(cfg.APIBaseURL, nil)
	bridge := vpn.NewTunnelblick(nil)
	builder, err := vpn.NewBuilder(cfg.StagingDir, cfg.CDNBaseURL, nil)
	if err != nil {
		return nil, err
	}

	return &CLI{
		cfg:        cfg,
		client:     client,
		bridge:     bridge,
		builder:    builder,
		manager:    vpn.NewManager(bridge, builder, client),
		reconciler: vpn.NewReconciler(bridge, client),
	}, nil
}

// Status prints the reconciled connection status.
func (c *CLI) Status(ctx context.Context) error {
	cs := c.reconciler.Reconcile(ctx)

	if !cs.Connected {
		fmt.Println(styleBad.Render("✗ Not connected"))
		return nil
	}

	fmt.Println(styleOK.Render("✓ Connected"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Server:\t%s\n", cs.ServerHostname)
	if loc := locationLine(cs.City, cs.Country); loc != "" {
		fmt.Fprintf(w, "  Location:\t%s\n", loc)
	}
	if cs.PublicIP != "" {
		fmt.Fprintf(w, "  Public IP:\t%s\n", cs.PublicIP)
	}
	if cs.HasLoad {
		fmt.Fprintf(w, "  Load:\t%s\n", loadStyle(cs.Load).Render(fmt.Sprintf("%d%%", cs.Load)))
	}
	w.Flush()
	return nil
}

// Connect resolves the target and establishes the connection, then echoes
// the resulting public IP.
func (c *CLI) Connect(ctx context.Context, country, city, server string) error {
	req := vpn.ConnectRequest{
		ServerHostname: server,
		CountryCode:    country,
		City:           city,
		MaxLoad:        c.cfg.MaxLoad,
	}

	picked, err := c.manager.Connect(ctx, req)
	if err != nil {
		return err
	}

	// An explicit --server connect resolves without the catalog; look the
	// host up here, best effort, so the display line still shows location
	// and load when the catalog answers.
	if server != "" {
		if s, err := c.client.ServerByHostname(ctx, picked.Hostname); err == nil && s != nil {
			picked = s
		}
	}

	fmt.Printf("%s %s", styleOK.Render("✓ Connected to"), picked.Hostname)
	if loc := locationLine(picked.CityName(), picked.CountryName()); loc != "" {
		fmt.Printf(" %s", styleDim.Render("("+loc+")"))
	}
	if picked.Load > 0 {
		fmt.Printf("  load %s", loadStyle(picked.Load).Render(fmt.Sprintf("%d%%", picked.Load)))
	}
	fmt.Println()

	if ip, err := c.reconciler.PublicIP(ctx); err == nil {
		fmt.Printf("  Public IP: %s\n", ip)
	}
	return nil
}

// Disconnect tears down the active connection, if any.
func (c *CLI) Disconnect(ctx context.Context) error {
	st := c.manager.Status(ctx)
	if st.State == vpn.StateDisconnected {
		fmt.Println("Not connected.")
		return nil
	}

	if err := c.manager.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	fmt.Println(styleOK.Render("✓ Disconnected"))
	return nil
}

// Servers lists OpenVPN-UDP servers for a country, best-recommended first.
func (c *CLI) Servers(ctx context.Context, countryCode string, limit int) error {
	if limit <= 0 {
		limit = c.cfg.ServerLimit
	}

	var countryID *int
	if countryCode != "" {
		country, err := c.client.CountryByCode(ctx, countryCode)
		if err != nil {
			return err
		}
		if country == nil {
			return fmt.Errorf("%w: unknown country %q", common.ErrBadArguments, countryCode)
		}
		countryID = &country.ID
	}

	servers, err := c.client.Recommendations(ctx, countryID, limit)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Println("No servers found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOSTNAME\tCITY\tCOUNTRY\tLOAD\tSTATUS")
	fmt.Fprintln(w, "--------\t----\t-------\t----\t------")
	for i := range servers {
		s := &servers[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Hostname,
			orDash(s.CityName()),
			orDash(s.CountryCode()),
			loadStyle(s.Load).Render(fmt.Sprintf("%d%%", s.Load)),
			s.Status)
	}
	w.Flush()
	return nil
}

// Countries lists all countries the catalog offers, alphabetically.
func (c *CLI) Countries(ctx context.Context) error {
	countries, err := c.client.Countries(ctx)
	if err != nil {
		return err
	}

	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Name < countries[j].Name
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	fmt.Fprintln(w, "----\t----")
	for i := range countries {
		fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(countries[i].Code), countries[i].Name)
	}
	w.Flush()
	return nil
}

// Setup runs the preflight checks and reports each result. It returns an
// error when any check fails so scripts can gate on the exit code.
func (c *CLI) Setup(ctx context.Context) error {
	failed := false
	check := func(ok bool, label, hint string) {
		if ok {
			fmt.Printf("%s %s\n", styleOK.Render("✓"), label)
			return
		}
		failed = true
		fmt.Printf("%s %s\n", styleBad.Render("✗"), label)
		if hint != "" {
			fmt.Printf("  %s\n", styleDim.Render(hint))
		}
	}

	check(c.bridge.IsInstalled(), "Tunnelblick installed",
		"Install from https://tunnelblick.net")

	running := c.bridge.IsRunning(ctx)
	if !running && c.bridge.IsInstalled() {
		if err := c.bridge.Launch(ctx); err == nil {
			running = c.bridge.IsRunning(ctx)
		}
	}
	check(running, "Tunnelblick running", "open -a Tunnelblick")

	check(creds.Configured(), "Credentials configured",
		fmt.Sprintf("Set %s and %s in the environment or a .env file", common.EnvUsername, common.EnvPassword))

	countries, err := c.client.Countries(ctx)
	check(err == nil, fmt.Sprintf("Catalog reachable (%d countries)", len(countries)),
		"Check your network connection")

	if failed {
		return fmt.Errorf("setup incomplete")
	}
	fmt.Println("\nReady. Try: nordctl connect --country us")
	return nil
}

// Configs lists provider configurations known to Tunnelblick, merging the
// scripting bridge's view with the on-disk configuration stores.
func (c *CLI) Configs(ctx context.Context) error {
	seen := map[string]bool{}
	var names []string
	add := func(list []string) {
		for _, n := range list {
			if strings.Contains(strings.ToLower(n), common.ProviderTag) && !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	if listed, err := c.bridge.ListConfigs(ctx); err == nil {
		add(listed)
	}
	if installed, err := c.builder.ListInstalledBundles(); err == nil {
		add(installed)
	}

	if len(names) == 0 {
		fmt.Println("No NordVPN configurations installed.")
		return nil
	}

	sort.Strings(names)
	active := c.manager.Status(ctx)
	for _, n := range names {
		marker := " "
		if active.State == vpn.StateConnected && active.ConfigName == n {
			marker = styleOK.Render("*")
		}
		fmt.Printf("%s %s\n", marker, n)
	}
	return nil
}

func locationLine(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
