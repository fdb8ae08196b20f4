package types

// Version is the application version. Overridden at build time via
// -ldflags "-X github.com/RukuLab/ruku/pkg/domain/types.Version=v1.2.3".
var Version = "dev"
