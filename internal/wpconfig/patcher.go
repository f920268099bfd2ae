// Package wpconfig keeps the RECOVERY_MODE_EMAIL constant in the host's
// wp-config.php in sync with the technical contact address.
package wpconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vrsandeep/techmail/internal/logger"
)

// FileName is the host configuration file the patcher edits.
const FileName = "wp-config.php"

var (
	// ErrConfigNotFound is returned when neither candidate path exists.
	ErrConfigNotFound = errors.New("wp-config.php not found")
	// ErrNotWritable is returned when the located file cannot be opened for writing.
	ErrNotWritable = errors.New("wp-config.php is not writable")
)

// Patcher performs the declaration upsert/remove on the host config file.
type Patcher struct {
	fs   afero.Fs
	root string
	log  *logrus.Entry
}

// NewPatcher creates a patcher for the installation rooted at root.
func NewPatcher(fs afero.Fs, root string, l *logrus.Logger) *Patcher {
	return &Patcher{
		fs:   fs,
		root: root,
		log:  logger.Component(l, "wpconfig"),
	}
}

// Locate returns the path of the existing config file. The installation
// root is tried first, then its parent directory. The file is never created.
func (p *Patcher) Locate() (string, error) {
	root := filepath.Clean(p.root)
	candidates := []string{
		filepath.Join(root, FileName),
		filepath.Join(filepath.Dir(root), FileName),
	}
	for _, path := range candidates {
		info, err := p.fs.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// Update applies the patch and reports any failure. It returns whether
// the file content changed.
func (p *Patcher) Update(address string, remove bool) (bool, error) {
	path, err := p.Locate()
	if err != nil {
		return false, err
	}

	info, err := p.fs.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := p.checkWritable(path); err != nil {
		return false, err
	}

	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)
	patched := Patch(content, address, remove)
	if remove && Embedded(patched) {
		p.log.WithField("path", path).Warn("Declaration shares its line with other code, leaving it in place")
	}
	if patched == content {
		return false, nil
	}

	if err := afero.WriteFile(p.fs, path, []byte(patched), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// Apply is Update with every failure absorbed: a missing or read-only
// config file is a silent no-op.
func (p *Patcher) Apply(address string, remove bool) {
	changed, err := p.Update(address, remove)
	switch {
	case errors.Is(err, ErrConfigNotFound), errors.Is(err, ErrNotWritable):
		p.log.WithError(err).Debug("Skipping config file update")
	case err != nil:
		p.log.WithError(err).Warn("Config file update failed")
	case changed:
		p.log.WithFields(logrus.Fields{"remove": remove}).Info("Updated " + ConstantName + " declaration")
	}
}

// Current returns the address currently declared in the config file.
func (p *Patcher) Current() (string, bool) {
	path, err := p.Locate()
	if err != nil {
		return "", false
	}
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return "", false
	}
	return Find(string(data))
}

func (p *Patcher) checkWritable(path string) error {
	f, err := p.fs.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	return f.Close()
}
