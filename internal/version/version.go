package version

// Version is the current version of the regression harness.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-options/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v0.3.0"

// GetVersion returns the current version of the harness.
func GetVersion() string {
	return Version
}
