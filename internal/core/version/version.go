package version

// Version is set at build time with -ldflags "-X .../internal/core/version.Version=...".
var Version = "0.1.0"

// Resolve returns override when set, otherwise the build version.
func Resolve(override string) string {
	if override != "" {
		return override
	}
	return Version
}
