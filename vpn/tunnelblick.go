package vpn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sveliz/nordctl/common"
)

// State is a Tunnelblick connection state. The set is closed; anything
// the GUI reports outside it maps to StateUnknown.
type State string

const (
	StateConnected    State = "CONNECTED"
	StateConnecting   State = "CONNECTING"
	StateDisconnected State = "DISCONNECTED"
	StateExiting      State = "EXITING"
	StateSleeping     State = "SLEEPING"
	StateUnknown      State = "UNKNOWN"
)

// ParseState maps a state string reported by Tunnelblick onto the closed
// state set.
func ParseState(s string) State {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateConnected:
		return StateConnected
	case StateConnecting:
		return StateConnecting
	case StateDisconnected:
		return StateDisconnected
	case StateExiting:
		return StateExiting
	case StateSleeping:
		return StateSleeping
	default:
		return StateUnknown
	}
}

// Status is a snapshot of Tunnelblick's connection state.
type Status struct {
	State      State
	ConfigName string
	ServerIP   string
}

// AppleScript commands understood by Tunnelblick.
const (
	scriptListConfigs   = `tell application "Tunnelblick" to get name of configurations`
	scriptGetStates     = `tell application "Tunnelblick" to get state of configurations`
	scriptDisconnectAll = `tell application "Tunnelblick" to disconnect all`
)

func scriptConnect(name string) string {
	return fmt.Sprintf(`tell application "Tunnelblick" to connect %q`, name)
}

func scriptDisconnect(name string) string {
	return fmt.Sprintf(`tell application "Tunnelblick" to disconnect %q`, name)
}

// Tunnelblick is the scripting bridge to the Tunnelblick application.
// All calls are synchronous to the GUI.
type Tunnelblick struct {
	exec          Executor
	scriptTimeout time.Duration
	pollInterval  time.Duration
	settleDelay   time.Duration
	launchDelay   time.Duration
	appPaths      []string
}

// NewTunnelblick creates a bridge using the given executor. A nil executor
// selects the real os/exec-backed one.
func NewTunnelblick(exec Executor) *Tunnelblick {
	if exec == nil {
		exec = NewExecutor()
	}
	home, _ := os.UserHomeDir()
	return &Tunnelblick{
		exec:          exec,
		scriptTimeout: common.ScriptTimeout,
		pollInterval:  common.ConnectPollInterval,
		settleDelay:   1 * time.Second,
		launchDelay:   common.LaunchSettleDelay,
		appPaths: []string{
			"/Applications/Tunnelblick.app",
			filepath.Join(home, "Applications", "Tunnelblick.app"),
		},
	}
}

// runScript executes one AppleScript statement against the GUI.
func (tb *Tunnelblick) runScript(ctx context.Context, script string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, tb.scriptTimeout)
	defer cancel()

	stdout, stderr, err := tb.exec.Output(cctx, "osascript", "-e", script)
	if err == nil {
		return stdout, nil
	}

	switch {
	case IsNotFound(err):
		return "", common.ErrBridgeUnavailable
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return "", common.ErrBridgeTimeout
	case strings.Contains(strings.ToLower(stderr), "not running"):
		return "", fmt.Errorf("%w: start Tunnelblick first", common.ErrAppNotRunning)
	default:
		return "", fmt.Errorf("AppleScript error: %s", stderr)
	}
}

// IsInstalled checks whether the Tunnelblick application bundle exists in
// the system or per-user Applications directory.
func (tb *Tunnelblick) IsInstalled() bool {
	for _, p := range tb.appPaths {
		if common.FileExists(p) {
			return true
		}
	}
	return false
}

// IsRunning checks whether a Tunnelblick process is live.
func (tb *Tunnelblick) IsRunning(ctx context.Context) bool {
	return tb.exec.Run(ctx, "pgrep", "-x", "Tunnelblick") == nil
}

// Launch starts the Tunnelblick application and waits a short fixed delay
// for it to become script-addressable.
func (tb *Tunnelblick) Launch(ctx context.Context) error {
	if err := tb.exec.Run(ctx, "open", "-a", "Tunnelblick"); err != nil {
		return common.WrapError(err, "failed to launch Tunnelblick")
	}
	return sleepCtx(ctx, tb.launchDelay)
}

// ListConfigs returns the names of all configurations registered in
// Tunnelblick, in the GUI's reported order.
func (tb *Tunnelblick) ListConfigs(ctx context.Context) ([]string, error) {
	out, err := tb.runScript(ctx, scriptListConfigs)
	if err != nil {
		return nil, err
	}
	return splitScriptList(out), nil
}

// GetStatus returns Tunnelblick's current connection snapshot. The states
// and names replies are parallel arrays; the first CONNECTED configuration
// wins, else the first CONNECTING one. Failure of the states query yields
// StateUnknown rather than an error; failure of only the names query
// yields the matched state with an empty config name.
func (tb *Tunnelblick) GetStatus(ctx context.Context) Status {
	raw, err := tb.runScript(ctx, scriptGetStates)
	if err != nil {
		common.LogDebug("bridge status unavailable: %v", err)
		return Status{State: StateUnknown}
	}
	if raw == "" {
		return Status{State: StateDisconnected}
	}

	states := splitScriptList(raw)
	configs, err := tb.ListConfigs(ctx)
	if err != nil {
		common.LogDebug("config names unavailable: %v", err)
		configs = nil
	}

	for _, want := range []State{StateConnected, StateConnecting} {
		for i, s := range states {
			if ParseState(s) == want {
				// The state is trustworthy even when the names query
				// failed; report it with an empty config name then.
				st := Status{State: want}
				if i < len(configs) {
					st.ConfigName = configs[i]
				}
				return st
			}
		}
	}
	return Status{State: StateDisconnected}
}

// Connect asks Tunnelblick to connect the named configuration. With wait
// set, it polls the GUI state every poll interval: success once CONNECTED,
// failure when the state returns to DISCONNECTED or the timeout elapses.
func (tb *Tunnelblick) Connect(ctx context.Context, configName string, wait bool, timeout time.Duration) error {
	if _, err := tb.runScript(ctx, scriptConnect(configName)); err != nil {
		return err
	}
	if !wait {
		return nil
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		switch tb.GetStatus(ctx).State {
		case StateConnected:
			return nil
		case StateDisconnected:
			return fmt.Errorf("%w: %s returned to disconnected", common.ErrConnectFailed, configName)
		}
		if err := sleepCtx(ctx, tb.pollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: not connected after %s", common.ErrConnectFailed, timeout)
}

// Disconnect instructs Tunnelblick to disconnect all configurations and
// verifies the result after a brief pause.
func (tb *Tunnelblick) Disconnect(ctx context.Context) error {
	if _, err := tb.runScript(ctx, scriptDisconnectAll); err != nil {
		return err
	}
	if err := sleepCtx(ctx, tb.settleDelay); err != nil {
		return err
	}
	if st := tb.GetStatus(ctx); st.State != StateDisconnected {
		return fmt.Errorf("%w: still %s", common.ErrConnectFailed, st.State)
	}
	return nil
}

// DisconnectConfig disconnects a single configuration by name.
func (tb *Tunnelblick) DisconnectConfig(ctx context.Context, configName string) error {
	if _, err := tb.runScript(ctx, scriptDisconnect(configName)); err != nil {
		return err
	}
	return sleepCtx(ctx, tb.settleDelay)
}

// splitScriptList splits an AppleScript list reply. Tunnelblick returns
// comma-separated values; configuration names we generate cannot contain
// commas, so a plain split is sufficient. Foreign names with embedded
// commas would mis-split here.
func splitScriptList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
