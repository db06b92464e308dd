package version

// Version is the current version of vibb.
// Can be overridden at build time using:
//   go build -ldflags="-X 'github.com/Prince10z/vibb/internal/version.Version=v1.0.0'"
var Version = "dev"
