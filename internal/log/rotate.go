package log

import (
	"errors"
	"fmt"
	"os"
)

// OpenRotating opens path for appending. If the existing file is larger than
// maxSize it is first renamed to path+".old", replacing any older backup. If
// the rename fails the file is removed instead, and if that fails too it is
// truncated. At most one current and one backup file exist afterwards.
func OpenRotating(path string, maxSize int64) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is empty")
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Size() > maxSize:
		if rerr := os.Rename(path, path+".old"); rerr != nil {
			if rmErr := os.Remove(path); rmErr != nil {
				f, err := os.Create(path)
				if err != nil {
					return nil, fmt.Errorf("truncate log %s: %w", path, err)
				}
				return f, nil
			}
		}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("stat log %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}
