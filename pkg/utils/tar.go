package utils

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Writes the contents of dir in fs as a tar stream.
// Entry names are relative to dir and use forward slashes.
// Ownership and timestamps are cleared so that equal trees produce equal streams.
func Tar(fs Fs, dir string, w io.Writer) error {
	tw := tar.NewWriter(w)

	err := afero.Walk(fs, dir, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		link := ""
		if fi.Mode()&os.ModeSymlink != 0 {
			reader, ok := fs.(afero.LinkReader)
			if !ok {
				return fmt.Errorf("%w: symlinks not supported: %s", ErrBadRequest, file)
			}
			if link, err = reader.ReadlinkIfPossible(file); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(fi, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.ModTime = time.Unix(0, 0)
		hdr.AccessTime, hdr.ChangeTime = time.Time{}, time.Time{}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		if fi.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		f, err := fs.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}

	return tw.Close()
}

// Extracts a tar stream into dir in fs.
// Entries escaping dir are rejected.
func Untar(r io.Reader, fs Fs, dir string) error {
	madeDir := map[string]bool{}

	tr := tar.NewReader(r)

	for {
		f, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: archive read error: %v", ErrParse, err)
		}

		rel := path.Clean(f.Name)
		if path.IsAbs(rel) || rel == ".." || len(rel) > 2 && rel[:3] == "../" {
			return fmt.Errorf("%w: archive entry outside of target directory: %s", ErrBadRequest, f.Name)
		}
		abs := filepath.Join(dir, filepath.FromSlash(rel))

		mode := f.FileInfo().Mode()
		switch f.Typeflag {
		case tar.TypeReg:
			parent := filepath.Dir(abs)
			if !madeDir[parent] {
				if err := fs.MkdirAll(parent, 0755); err != nil {
					return err
				}
				madeDir[parent] = true
			}
			wf, err := fs.OpenFile(abs, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode.Perm())
			if err != nil {
				return err
			}
			n, err := io.Copy(wf, tr)
			if closeErr := wf.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
			if err != nil {
				return fmt.Errorf("error writing to %s: %v", abs, err)
			}
			if n != f.Size {
				return fmt.Errorf("only wrote %d bytes to %s; expected %d", n, abs, f.Size)
			}
		case tar.TypeDir:
			if err := fs.MkdirAll(abs, mode.Perm()|0700); err != nil {
				return err
			}
			madeDir[abs] = true
		case tar.TypeSymlink:
			linker, ok := fs.(afero.Linker)
			if !ok {
				return fmt.Errorf("%w: symlinks not supported: %s", ErrBadRequest, f.Name)
			}
			if err := linker.SymlinkIfPossible(f.Linkname, abs); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: archive entry %s contained unsupported file type %v", ErrBadRequest, f.Name, mode)
		}
	}
	return nil
}
