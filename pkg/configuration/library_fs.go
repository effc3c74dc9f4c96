package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Library storing configurations as files in a filesystem.
// Use an in-memory filesystem for a volatile library.
type fsLibrary struct {
	sync.RWMutex
	fs utils.Fs
}

func NewFsLibrary(fs utils.Fs) *fsLibrary {
	return &fsLibrary{fs: fs}
}

func NewMemoryLibrary() *fsLibrary {
	return NewFsLibrary(afero.NewMemMapFs())
}

func (l *fsLibrary) path(hash utils.Digest) string {
	hex := hash.Hex()
	if len(hex) < 2 {
		return filepath.Join(string(hash.Algorithm()), hex)
	}
	return filepath.Join(string(hash.Algorithm()), hex[:2], hex)
}

func (l *fsLibrary) Add(c *Configuration) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	path := l.path(c.Hash())

	l.Lock()
	defer l.Unlock()

	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	// Readers must never observe a partial file.
	tmp := path + ".tmp"
	if err := afero.WriteFile(l.fs, tmp, data, 0644); err != nil {
		l.fs.Remove(tmp)
		return err
	}
	if err := l.fs.Rename(tmp, path); err != nil {
		l.fs.Remove(tmp)
		return err
	}

	log.Debugf("Added configuration %s (%s)", c.Name, c.Hash())
	return nil
}

func (l *fsLibrary) Get(hash utils.Digest) (*Configuration, error) {
	l.RLock()
	data, err := afero.ReadFile(l.fs, l.path(hash))
	l.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: configuration %s", utils.ErrNotFound, hash)
		}
		return nil, err
	}

	return Decode(data)
}

func (l *fsLibrary) Remove(hash utils.Digest) error {
	l.Lock()
	defer l.Unlock()

	path := l.path(hash)

	if _, err := l.fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: configuration %s", utils.ErrNotFound, hash)
		}
		return err
	}

	if err := l.fs.Remove(path); err != nil {
		return err
	}

	log.Debugf("Removed configuration %s", hash)
	return nil
}
