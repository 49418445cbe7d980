// Package state reads and writes JSON snapshots of the tag index.
package state

// CurrentVersion is the snapshot format written by this build.
const CurrentVersion = 1

// Snapshot is a portable dump of every file and its tag assignments.
type Snapshot struct {
	// Version for future compatibility
	Version int `json:"version"`

	Files []FileEntry `json:"files"`
}

// FileEntry describes one registered file.
type FileEntry struct {
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Tags     []string `json:"tags"`
}
