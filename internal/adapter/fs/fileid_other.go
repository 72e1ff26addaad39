//go:build !unix

package fs

import "path/filepath"

type fileID struct {
	path string
}

// identity falls back to the fully resolved path where inodes are not
// available.
func identity(path string) (fileID, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fileID{}, err
	}
	abs, err := filepath.Abs(real)
	if err != nil {
		return fileID{}, err
	}
	return fileID{path: abs}, nil
}
