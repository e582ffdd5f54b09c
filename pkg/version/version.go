// Package version holds build version information.
package version

// Version is the docdex release version. Overridden at build time with
// -ldflags "-X github.com/docdex/docdex/pkg/version.Version=...".
var Version = "0.1.0"
