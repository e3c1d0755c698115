// Package vpn drives Tunnelblick on macOS to establish NordVPN
// connections.
//
// This package implements the core controller functionality:
//
//   - Tunnelblick: the AppleScript scripting bridge (list configurations,
//     query state, connect, disconnect)
//   - Builder: assembly and installation of .tblk configuration bundles
//     with embedded service credentials
//   - Reconciler: fusing bridge state, public-IP and geolocation probes,
//     and the server catalog into one connection status
//   - Manager: the connect state machine composing all of the above
//
// All blocking operations take a context and honor cancellation. One
// connect or status invocation runs at a time per process; the package is
// not designed for concurrent invocations against the same GUI.
package vpn
