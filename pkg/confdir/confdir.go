// Package confdir provides the directory-backed configuration store: one
// file per package under a config directory (conventionally /etc/config).
// It implements the uci.Store interface over an afero filesystem, so tests
// and embedded deployments can run against an in-memory tree.
package confdir

import (
	"io"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/honeybbq/uci/pkg/uci"
	"github.com/honeybbq/uci/pkg/ucierrors"
)

// DefaultPath 是约定的配置目录。
const DefaultPath = "/etc/config"

// Dir is a directory of configuration files.
type Dir struct {
	fs   afero.Fs
	path string

	// Logger receives operational events (loads, commits). Defaults to
	// the logrus standard logger.
	Logger *logrus.Logger
}

// New returns a store rooted at path on the given filesystem.
func New(fs afero.Fs, path string) *Dir {
	if path == "" {
		path = DefaultPath
	}
	return &Dir{fs: fs, path: path, Logger: logrus.StandardLogger()}
}

// ListConfigs enumerates the configuration names in the directory.
// Entries whose names are not valid package names (dotfiles, editor
// leftovers) are skipped. The result is sorted.
func (d *Dir) ListConfigs() ([]string, error) {
	entries, err := afero.ReadDir(d.fs, d.path)
	if err != nil {
		return nil, ucierrors.Newf(ucierrors.KindIO, "read config dir %q: %v", d.path, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !uci.ValidName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a stream for the named configuration file.
func (d *Dir) Open(name string) (io.ReadCloser, error) {
	if !uci.ValidName(name) {
		return nil, ucierrors.Newf(ucierrors.KindInvalid, "invalid config name %q", name)
	}
	f, err := d.fs.Open(filepath.Join(d.path, name))
	if err != nil {
		return nil, err
	}
	d.Logger.WithFields(logrus.Fields{"config": name, "dir": d.path}).Debug("opened config")
	return f, nil
}

// Write persists serialized configuration text. The file is written in
// full; partial writes surface as errors from the underlying filesystem.
func (d *Dir) Write(name string, data []byte) error {
	if !uci.ValidName(name) {
		return ucierrors.Newf(ucierrors.KindInvalid, "invalid config name %q", name)
	}
	if err := d.fs.MkdirAll(d.path, 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(d.fs, filepath.Join(d.path, name), data, 0o644); err != nil {
		return err
	}
	d.Logger.WithFields(logrus.Fields{"config": name, "bytes": len(data)}).Info("committed config")
	return nil
}
