package configuration

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// Builds a configuration from the contents of a directory.
func FromDirectory(name string, fs utils.Fs, dir string) (*Configuration, error) {
	buf := bytes.Buffer{}

	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if err := utils.Tar(fs, dir, zw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to bundle %s: %w", dir, err)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return New(name, buf.Bytes()), nil
}

// Builds a configuration holding a single file.
func SingleFile(name, filename string, contents []byte) (*Configuration, error) {
	fs := utils.NewMemFs()
	if err := afero.WriteFile(fs, filepath.Join("/", filename), contents, 0644); err != nil {
		return nil, err
	}
	return FromDirectory(name, fs, "/")
}

// A configuration extracted into a private directory.
type Environment struct {
	// Name of the applied configuration.
	Name string
	// Hash of the applied configuration.
	Hash utils.Digest
	// Directory holding the extracted files.
	Dir string
	// Filesystem that Dir belongs to.
	Fs utils.Fs
}

// Extracts the configuration into a new temporary directory below root in fs.
// An empty root selects the default temporary directory.
// The environment must be closed to remove the directory.
func (c *Configuration) Apply(fs utils.Fs, root string) (*Environment, error) {
	dir, err := afero.TempDir(fs, root, "multinode-")
	if err != nil {
		return nil, err
	}

	env := &Environment{
		Name: c.Name,
		Hash: c.hash,
		Dir:  dir,
		Fs:   fs,
	}

	zr, err := zstd.NewReader(bytes.NewReader(c.Contents))
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}
	defer zr.Close()

	if err := utils.Untar(zr, fs, dir); err != nil {
		env.Close()
		return nil, err
	}

	log.Debugf("Configuration %s (%s) applied in %s", c.Name, c.hash, dir)
	return env, nil
}

// Path of a file inside the environment.
func (e *Environment) Path(name string) string {
	return filepath.Join(e.Dir, filepath.FromSlash(name))
}

// Removes the extracted files.
func (e *Environment) Close() error {
	return e.Fs.RemoveAll(e.Dir)
}
