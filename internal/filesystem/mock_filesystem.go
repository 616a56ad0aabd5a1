package filesystem

import (
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockFileSystem implements the FileSystem interface for testing purposes.
// Contents live in an in-memory backend; errors can be simulated per path and
// OpenFile can be made to hand out a scripted MockFile.
type MockFileSystem struct {
	mem *RealFileSystem

	mu               sync.RWMutex
	openErrorPaths   map[string]error // paths that should error on Open/OpenFile
	statErrorPaths   map[string]error // paths that should error on Stat
	removeErrorPaths map[string]error // paths that should error on Remove
	renameErrorPaths map[string]error // old paths that should error on Rename
	openFiles        map[string]File  // paths that OpenFile answers with a fixed File

	openCalls   map[string]int
	removeCalls map[string]int
	renameCalls map[string]int
}

// NewMockFileSystem creates a new instance of MockFileSystem, ready for use.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		mem:              NewMemFileSystem(),
		openErrorPaths:   make(map[string]error),
		statErrorPaths:   make(map[string]error),
		removeErrorPaths: make(map[string]error),
		renameErrorPaths: make(map[string]error),
		openFiles:        make(map[string]File),
		openCalls:        make(map[string]int),
		removeCalls:      make(map[string]int),
		renameCalls:      make(map[string]int),
	}
}

func key(path string) string {
	return filepath.Clean(path)
}

// --- Helper methods for setting up the mock state ---

// AddFile stores content at path in the backing memory filesystem.
func (mfs *MockFileSystem) AddFile(path string, content []byte) error {
	return mfs.mem.WriteFile(path, content, 0644)
}

// SetOpenFile makes OpenFile return f for path instead of opening the stored file.
func (mfs *MockFileSystem) SetOpenFile(path string, f File) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.openFiles[key(path)] = f
}

// --- Helper methods for simulating errors ---

func (mfs *MockFileSystem) SimulateOpenError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.openErrorPaths[key(path)] = err
}
func (mfs *MockFileSystem) SimulateStatError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.statErrorPaths[key(path)] = err
}
func (mfs *MockFileSystem) SimulateRemoveError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.removeErrorPaths[key(path)] = err
}
func (mfs *MockFileSystem) SimulateRenameError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.renameErrorPaths[key(path)] = err
}

// --- Assert helpers ---

func (mfs *MockFileSystem) AssertOpenCalled(t *testing.T, path string) {
	t.Helper()
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	assert.Greater(t, mfs.openCalls[key(path)], 0, "Open was not called for %s", path)
}

func (mfs *MockFileSystem) AssertRemoveCalled(t *testing.T, path string) {
	t.Helper()
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	assert.Greater(t, mfs.removeCalls[key(path)], 0, "Remove was not called for %s", path)
}

func (mfs *MockFileSystem) AssertRemoveNotCalled(t *testing.T, path string) {
	t.Helper()
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	assert.Equal(t, 0, mfs.removeCalls[key(path)], "Remove should not have been called for %s", path)
}

func (mfs *MockFileSystem) AssertRenameCalled(t *testing.T, oldpath string) {
	t.Helper()
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	assert.Greater(t, mfs.renameCalls[key(oldpath)], 0, "Rename was not called for %s", oldpath)
}

// --- Implement FileSystem interface methods ---

// Open simulates opening a file for reading.
func (mfs *MockFileSystem) Open(name string) (File, error) {
	mfs.mu.Lock()
	mfs.openCalls[key(name)]++
	err, failed := mfs.openErrorPaths[key(name)]
	mfs.mu.Unlock()
	if failed {
		return nil, err
	}
	return mfs.mem.Open(name)
}

// OpenFile simulates the generalized open call.
func (mfs *MockFileSystem) OpenFile(name string, flag int, perm fs.FileMode) (File, error) {
	mfs.mu.Lock()
	mfs.openCalls[key(name)]++
	err, failed := mfs.openErrorPaths[key(name)]
	f, scripted := mfs.openFiles[key(name)]
	mfs.mu.Unlock()
	if failed {
		return nil, err
	}
	if scripted {
		return f, nil
	}
	return mfs.mem.OpenFile(name, flag, perm)
}

// ReadFile reads from the backing memory filesystem.
func (mfs *MockFileSystem) ReadFile(name string) ([]byte, error) {
	return mfs.mem.ReadFile(name)
}

// WriteFile writes to the backing memory filesystem.
func (mfs *MockFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return mfs.mem.WriteFile(name, data, perm)
}

// Stat simulates getting file info.
func (mfs *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	err, failed := mfs.statErrorPaths[key(name)]
	mfs.mu.RUnlock()
	if failed {
		return nil, err
	}
	return mfs.mem.Stat(name)
}

// Remove simulates removing a file.
func (mfs *MockFileSystem) Remove(name string) error {
	mfs.mu.Lock()
	mfs.removeCalls[key(name)]++
	err, failed := mfs.removeErrorPaths[key(name)]
	mfs.mu.Unlock()
	if failed {
		return err
	}
	return mfs.mem.Remove(name)
}

// Rename simulates renaming a file.
func (mfs *MockFileSystem) Rename(oldpath, newpath string) error {
	mfs.mu.Lock()
	mfs.renameCalls[key(oldpath)]++
	err, failed := mfs.renameErrorPaths[key(oldpath)]
	mfs.mu.Unlock()
	if failed {
		return err
	}
	return mfs.mem.Rename(oldpath, newpath)
}

// MockFile is a testify mock implementing File. Each call must be set up with On.
type MockFile struct {
	mock.Mock
}

func (m *MockFile) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockFile) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockFile) Seek(offset int64, whence int) (int64, error) {
	args := m.Called(offset, whence)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFile) Close() error {
	return m.Called().Error(0)
}

func (m *MockFile) Name() string {
	return m.Called().String(0)
}

func (m *MockFile) Stat() (fs.FileInfo, error) {
	args := m.Called()
	info, _ := args.Get(0).(fs.FileInfo)
	return info, args.Error(1)
}

func (m *MockFile) Sync() error {
	return m.Called().Error(0)
}

func (m *MockFile) Truncate(size int64) error {
	return m.Called(size).Error(0)
}
