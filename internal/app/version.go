package app

// Build metadata, stamped at link time:
//
//	go build -ldflags "-X github.com/large-farva/skyengine/internal/app.Version=v0.3.0 \
//	    -X github.com/large-farva/skyengine/internal/app.BuiltAt=$(date -u +%FT%TZ)" ./cmd/skyd
//
// GoVersion falls back to runtime.Version() when not stamped.
var (
	Version   = "dev"
	GoVersion = "unknown"
	BuiltAt   = "unknown"
)
