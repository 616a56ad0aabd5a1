package filesystem

import (
	"io"
	"io/fs"
)

// File is an open file stream. The stream owns the cursor; callers must not
// keep their own copy of the position.
// afero.File satisfies this interface.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Name returns the name the file was opened with.
	Name() string

	// Stat returns the FileInfo of the open file.
	Stat() (fs.FileInfo, error)

	// Sync commits the current contents of the file to stable storage.
	Sync() error

	// Truncate changes the size of the file. It does not change the cursor.
	Truncate(size int64) error
}

// FileSystem defines an interface for interacting with the filesystem.
// This allows for decoupling the file handle from the OS package, facilitating testing.
type FileSystem interface {
	// Open opens the named file for reading.
	Open(name string) (File, error)

	// OpenFile is the generalized open call; flag is a combination of os.O_* values.
	// If the file does not exist and os.O_CREATE is passed, it is created with mode perm.
	OpenFile(name string, flag int, perm fs.FileMode) (File, error)

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	// If the file does not exist, WriteFile creates it with permissions perm;
	// otherwise WriteFile truncates it before writing, without changing permissions.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Stat returns a FileInfo describing the named file.
	Stat(name string) (fs.FileInfo, error)

	// Remove removes the named file or (empty) directory.
	Remove(name string) error

	// Rename renames (moves) oldpath to newpath.
	// If newpath already exists and is not a directory, Rename replaces it.
	// OS-specific restrictions may apply when oldpath and newpath are in different directories.
	Rename(oldpath, newpath string) error
}
