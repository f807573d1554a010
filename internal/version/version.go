// Package version records the sshm release version.
package version

// Version is overridden at release time via
// -ldflags "-X sshm/internal/version.Version=...".
var Version = "0.4.0"
