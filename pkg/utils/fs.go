package utils

import "github.com/spf13/afero"

type Fs afero.Fs
type File afero.File

func NewOsFs() Fs {
	return afero.NewOsFs()
}

func NewMemFs() Fs {
	return afero.NewMemMapFs()
}

// Returns a filesystem rooted at the given directory of the parent filesystem.
func NewBasePathFs(fs Fs, dir string) Fs {
	return afero.NewBasePathFs(fs, dir)
}
