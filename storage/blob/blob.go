// Package blob implements core.BlobStore on the local filesystem and on S3 compatible services.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
)

// Open returns the store selected by conf.Driver.
func Open(ctx context.Context, conf core.BlobConfig) (core.BlobStore, error) {
	switch conf.Driver {
	case core.BlobDriverFS:
		return NewFSStore(conf.Root)
	case core.BlobDriverS3:
		return NewS3Store(ctx, conf.S3)
	}
	return nil, errors.Errorf("unknown blob driver %q", conf.Driver)
}

// cleanKey rejects keys escaping the store: blank, absolute or with `..` segments.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty blob key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute blob key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid blob key %q", key)
		}
	}
	return path.Clean(key), nil
}
