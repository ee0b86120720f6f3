package config

// Version is the server release, reported by /health and recorded in every
// snapshot. Set at build time via:
// -ldflags "-X github.com/waleedsbi/atm-master/internal/config.Version=<tag>"
var Version = "1.0.0"
