package blob

import (
	"context"
	"fmt"

	"trendmart/internal/config"
)

// Open constructs a Store from the pipeline's blob configuration.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFS:
		return NewFS(cfg.FS.Root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", cfg.Driver)
	}
}
