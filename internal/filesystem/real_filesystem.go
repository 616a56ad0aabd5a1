package filesystem

import (
	"io/fs"

	"github.com/spf13/afero"
)

// RealFileSystem implements the FileSystem interface on top of an afero.Fs.
// NewRealFileSystem binds it to the host OS; NewMemFileSystem keeps everything in memory.
type RealFileSystem struct {
	fs afero.Fs
}

// NewRealFileSystem creates a FileSystem backed by the host operating system.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{fs: afero.NewOsFs()}
}

// NewMemFileSystem creates a FileSystem held entirely in memory.
// Useful for tests and dry runs; nothing touches the disk.
func NewMemFileSystem() *RealFileSystem {
	return &RealFileSystem{fs: afero.NewMemMapFs()}
}

// Open opens the named file for reading using afero.Fs.Open.
func (rfs *RealFileSystem) Open(name string) (File, error) {
	f, err := rfs.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenFile opens the named file with the given flags using afero.Fs.OpenFile.
func (rfs *RealFileSystem) OpenFile(name string, flag int, perm fs.FileMode) (File, error) {
	f, err := rfs.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadFile reads the named file using afero.ReadFile.
func (rfs *RealFileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(rfs.fs, name)
}

// WriteFile writes data to the named file using afero.WriteFile.
func (rfs *RealFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(rfs.fs, name, data, perm)
}

// Stat returns a FileInfo using afero.Fs.Stat.
func (rfs *RealFileSystem) Stat(name string) (fs.FileInfo, error) {
	return rfs.fs.Stat(name)
}

// Remove removes the named file or directory using afero.Fs.Remove.
func (rfs *RealFileSystem) Remove(name string) error {
	return rfs.fs.Remove(name)
}

// Rename renames (moves) a file using afero.Fs.Rename.
func (rfs *RealFileSystem) Rename(oldpath, newpath string) error {
	return rfs.fs.Rename(oldpath, newpath)
}
