package fs

import (
	gopath "path"
)

// MountPath is a cleaned, absolute path inside the mount.
type MountPath struct {
	path string
}

// NewMountPath cleans p and roots it at "/".
func NewMountPath(p string) MountPath {
	return MountPath{path: gopath.Clean("/" + p)}
}

// String returns the string representation of the path
func (mp MountPath) String() string {
	return mp.path
}

// Join returns the child path for name.
func (mp MountPath) Join(name string) MountPath {
	return MountPath{path: gopath.Join(mp.path, name)}
}

// Base returns the last element of the path.
func (mp MountPath) Base() string {
	return gopath.Base(mp.path)
}

// IsRoot returns true if this is the mount root.
func (mp MountPath) IsRoot() bool {
	return mp.path == "/"
}
