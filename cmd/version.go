package cmd

// Version is the application version, set at build time with ldflags.
// Example: go build -ldflags "-X github.com/vulnsight/vulnsight/cmd.Version=1.0.0"
var Version = "1.0"
