// Package bundle describes the output of rendering a device configuration
// to the native UCI layout: one text file per package plus any auxiliary
// files (keys, scripts) that ship alongside it.
package bundle

import (
	"io/fs"
	"time"
)

// Package is one rendered configuration package. It corresponds to a file
// under /etc/config/ (e.g. "system", "network"); the content carries no
// "package" declaration line.
type Package struct {
	Name    string
	Content []byte
}

// File is an additional file (certificates, scripts, keys) deployed
// alongside the configuration.
type File struct {
	Path    string      // absolute target path
	Content []byte      // binary-safe content
	Mode    fs.FileMode // unix permissions (e.g. 0644, 0600)
}

// Metadata records how and when the bundle was produced.
type Metadata struct {
	Format    string // always "uci" for this module
	Backend   string // backend name that generated the bundle
	Generated time.Time
	Version   string
	Custom    map[string]string
}

// Bundle is the complete output of one render operation.
type Bundle struct {
	Packages []Package
	Files    []File
	Metadata Metadata
}

// New creates an empty Bundle with initialized metadata.
func New(format, backend string) *Bundle {
	return &Bundle{
		Packages: make([]Package, 0),
		Files:    make([]File, 0),
		Metadata: Metadata{
			Format:    format,
			Backend:   backend,
			Generated: time.Now(),
			Custom:    make(map[string]string),
		},
	}
}
