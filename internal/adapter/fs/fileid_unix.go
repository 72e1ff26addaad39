//go:build unix

package fs

import "golang.org/x/sys/unix"

type fileID struct {
	dev uint64
	ino uint64
}

// identity stats path, following links, and returns its device and inode.
func identity(path string) (fileID, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileID{}, err
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}
