package version

// Version is the application version, overridden at build time via
// -ldflags "-X github.com/aficcion/vinylbe/internal/version.Version=...".
var Version = "dev"
