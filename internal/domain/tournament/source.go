package tournament

import "context"

// StaticSourceName marks sections filled from the bundled reference dataset.
const StaticSourceName = "static"

// Source retrieves whatever sections one upstream can provide.
// A returned error means the whole result is discarded.
type Source interface {
	Name() string
	FetchSnapshot(ctx context.Context) (PartialSnapshot, error)
}
