// Package handle provides Handle, a stateful wrapper that binds at most one
// file at a time and exposes line and byte oriented reads, writes, seeking,
// truncation and whole-file operations (copy, rename, delete) on it.
//
// The cursor belongs to the underlying file stream. Handle never keeps its own
// copy of the position; every read that over-fetches rewinds the stream so the
// next operation starts exactly after the bytes it consumed.
//
// A Handle is not safe for concurrent use.
package handle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/stackvity/filehandle/internal/filesystem"
)

// DefaultPerm is the permission given to files created through a Handle.
const DefaultPerm fs.FileMode = 0644

const readChunkSize = 512

// Handle binds zero or one open file.
type Handle struct {
	// Perm is applied to files created by Open, Append and Copy.
	Perm fs.FileMode
	// Overwrite lets Rename replace an existing destination.
	Overwrite bool

	fs     filesystem.FileSystem
	logger *slog.Logger
	path   string
	file   filesystem.File
	mode   Mode
}

// New creates an unopened Handle that performs its I/O through fsys.
// A nil logger discards all log output.
func New(fsys filesystem.FileSystem, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handle{
		Perm:   DefaultPerm,
		fs:     fsys,
		logger: logger,
	}
}

// Path returns the bound path, or "" when nothing is bound.
// The path stays bound after Close until Delete or a failed Open.
func (h *Handle) Path() string { return h.path }

// IsOpen reports whether the handle currently owns an open file.
func (h *Handle) IsOpen() bool { return h.file != nil }

// Mode returns the mode of the open file, or 0 when nothing is open.
func (h *Handle) Mode() Mode { return h.mode }

// Open binds path in the given mode. A file that is already open is closed
// first; if the new open then fails the handle is left unopened and unbound.
// Failures are returned as *OpenError.
func (h *Handle) Open(path string, mode Mode) error {
	if h.file != nil {
		h.logger.Debug("Closing open file before re-open", "path", h.path, "next", path)
		if _, err := h.Close(); err != nil {
			h.logger.Warn("Failed to close previous file", "path", h.path, "error", err)
		}
	}
	h.path = ""

	flag, err := mode.flags()
	if err != nil {
		return &OpenError{Path: path, Mode: mode, Err: err}
	}

	f, err := h.fs.OpenFile(path, flag, h.Perm)
	if err != nil {
		return &OpenError{Path: path, Mode: mode, Err: err}
	}

	if mode&ModeAtEnd != 0 {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return &OpenError{Path: path, Mode: mode, Err: err}
		}
	}

	h.file, h.path, h.mode = f, path, mode
	h.logger.Debug("Opened file", "path", path, "mode", mode.String())
	return nil
}

// Bind attaches the handle to an existing path without opening a stream, for
// path-only operations such as Rename, Delete and Size. Any open file is
// closed first. A missing path is returned as *OpenError with a zero Mode.
func (h *Handle) Bind(path string) error {
	if h.file != nil {
		if _, err := h.Close(); err != nil {
			h.logger.Warn("Failed to close previous file", "path", h.path, "error", err)
		}
	}
	h.path = ""

	if _, err := h.fs.Stat(path); err != nil {
		return &OpenError{Path: path, Err: err}
	}
	h.path = path
	h.logger.Debug("Bound file", "path", path)
	return nil
}

// Close releases the open file. It reports false, with no error, when nothing
// was open, so it is safe to call any number of times.
func (h *Handle) Close() (bool, error) {
	if h.file == nil {
		return false, nil
	}
	f := h.file
	h.file, h.mode = nil, 0
	if err := f.Close(); err != nil {
		return true, fmt.Errorf("failed to close '%s': %w", h.path, err)
	}
	h.logger.Debug("Closed file", "path", h.path)
	return true, nil
}

// isEOF reports end-of-stream. Some backends answer a read positioned past
// the end with io.ErrUnexpectedEOF rather than io.EOF.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// readUntil consumes bytes up to and including delim. Bytes fetched past the
// delimiter are given back to the stream with a relative seek.
func (h *Handle) readUntil(delim byte) ([]byte, bool, error) {
	var data []byte
	buf := make([]byte, readChunkSize)
	for {
		n, rerr := h.file.Read(buf)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], delim); i >= 0 {
				data = append(data, buf[:i]...)
				if extra := n - i - 1; extra > 0 {
					if _, err := h.file.Seek(int64(-extra), io.SeekCurrent); err != nil {
						return data, true, fmt.Errorf("failed to rewind '%s': %w", h.path, err)
					}
				}
				return data, true, nil
			}
			data = append(data, buf[:n]...)
		}
		if rerr != nil {
			if isEOF(rerr) {
				return data, false, nil
			}
			return data, false, fmt.Errorf("failed to read '%s': %w", h.path, rerr)
		}
	}
}

// ReadLine reads one line from the cursor with the trailing '\n' stripped.
// An empty line returns ("", nil); end-of-stream returns ("", io.EOF). A final
// line without a newline is still returned as a line.
func (h *Handle) ReadLine() (string, error) {
	if h.file == nil {
		return "", ErrNotOpen
	}
	data, found, err := h.readUntil('\n')
	if err != nil {
		return string(data), err
	}
	if !found && len(data) == 0 {
		return "", io.EOF
	}
	return string(data), nil
}

// ReadTerminatedLine is ReadLine for streams that are still being written.
// When the stream ends before a newline it rewinds to the start of the partial
// line and returns io.ErrUnexpectedEOF, so the line can be read whole later.
func (h *Handle) ReadTerminatedLine() (string, error) {
	if h.file == nil {
		return "", ErrNotOpen
	}
	start, err := h.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("failed to query position of '%s': %w", h.path, err)
	}
	data, found, err := h.readUntil('\n')
	if err != nil {
		return "", err
	}
	if found {
		return string(data), nil
	}
	if len(data) == 0 {
		return "", io.EOF
	}
	if _, err := h.file.Seek(start, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind '%s': %w", h.path, err)
	}
	return "", io.ErrUnexpectedEOF
}

// Lines returns a single-use sequence over the remaining lines. Iteration
// stops at end-of-stream; a read failure is yielded once as the error.
func (h *Handle) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			line, err := h.ReadLine()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// ReadLines consumes the stream from the cursor to end-of-stream.
func (h *Handle) ReadLines() ([]string, error) {
	if h.file == nil {
		return nil, ErrNotOpen
	}
	lines := make([]string, 0)
	for line, err := range h.Lines() {
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Read reads up to n bytes. Fewer bytes are returned without error near
// end-of-stream; io.EOF is returned only when nothing was left.
func (h *Handle) Read(n int) (string, error) {
	if h.file == nil {
		return "", ErrNotOpen
	}
	if n < 0 {
		return "", fmt.Errorf("%w: byte count %d", ErrInvalidArgument, n)
	}
	if n == 0 {
		return "", nil
	}

	// The buffer grows with what the file holds, not with n.
	data, err := io.ReadAll(io.LimitReader(h.file, int64(n)))
	if err != nil && !isEOF(err) {
		return string(data), fmt.Errorf("failed to read '%s': %w", h.path, err)
	}
	if len(data) == 0 {
		return "", io.EOF
	}
	return string(data), nil
}

// ReadUntil reads until delim is consumed and returns the bytes before it.
// If delim never appears the rest of the stream is returned.
func (h *Handle) ReadUntil(delim byte) (string, error) {
	if h.file == nil {
		return "", ErrNotOpen
	}
	data, found, err := h.readUntil(delim)
	if err != nil {
		return string(data), err
	}
	if !found && len(data) == 0 {
		return "", io.EOF
	}
	return string(data), nil
}

// Write writes data at the cursor, or at end-of-file in append mode.
func (h *Handle) Write(data string) error {
	if h.file == nil {
		return ErrNotOpen
	}
	if _, err := io.WriteString(h.file, data); err != nil {
		return fmt.Errorf("failed to write '%s': %w", h.path, err)
	}
	return nil
}

// WriteLines writes each element in order without adding separators.
// It stops at the first failure; lines already written stay written.
func (h *Handle) WriteLines(lines []string) error {
	if h.file == nil {
		return ErrNotOpen
	}
	for i, line := range lines {
		if err := h.Write(line); err != nil {
			return fmt.Errorf("wrote %d of %d lines: %w", i, len(lines), err)
		}
	}
	return nil
}

// Append writes data at the end of the bound file. A handle opened with
// ModeAppend writes through its own stream; otherwise the path is opened
// separately in append mode and the handle's cursor is left alone.
func (h *Handle) Append(data string) error {
	if h.file != nil && h.mode&ModeAppend != 0 {
		return h.Write(data)
	}
	if h.path == "" {
		return ErrNotBound
	}

	f, err := h.fs.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, h.Perm)
	if err != nil {
		return fmt.Errorf("failed to open '%s' for append: %w", h.path, err)
	}
	if _, err := io.WriteString(f, data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to '%s': %w", h.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close '%s' after append: %w", h.path, err)
	}
	return nil
}

// Seek moves the cursor to an absolute byte offset. Offsets past the end are
// allowed; a following Write extends the file and zero-fills the gap.
func (h *Handle) Seek(pos int64) error {
	if h.file == nil {
		return ErrNotOpen
	}
	if pos < 0 {
		return fmt.Errorf("%w: position %d", ErrInvalidArgument, pos)
	}
	if _, err := h.file.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek '%s' to %d: %w", h.path, pos, err)
	}
	return nil
}

// Tell returns the cursor offset, or -1 when nothing is open.
func (h *Handle) Tell() int64 {
	if h.file == nil {
		return -1
	}
	pos, err := h.file.Seek(0, io.SeekCurrent)
	if err != nil {
		h.logger.Debug("Failed to query position", "path", h.path, "error", err)
		return -1
	}
	return pos
}

// AtEOF reports whether the cursor is at or past the end of the file.
// A closed handle is always at end-of-stream.
func (h *Handle) AtEOF() bool {
	if h.file == nil {
		return true
	}
	pos, err := h.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return true
	}
	info, err := h.file.Stat()
	if err != nil {
		return true
	}
	return pos >= info.Size()
}

// Truncate resizes the open file to size bytes. The cursor does not move.
func (h *Handle) Truncate(size int64) error {
	if h.file == nil {
		return ErrNotOpen
	}
	if size < 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidArgument, size)
	}
	if err := h.file.Truncate(size); err != nil {
		return fmt.Errorf("failed to truncate '%s' to %d: %w", h.path, size, err)
	}
	return nil
}

// Flush commits written data to storage. It does nothing when no file is open.
func (h *Handle) Flush() error {
	if h.file == nil {
		return nil
	}
	if err := h.file.Sync(); err != nil {
		return fmt.Errorf("failed to flush '%s': %w", h.path, err)
	}
	return nil
}

// Size returns the on-disk size of the bound file.
func (h *Handle) Size() (int64, error) {
	if h.path == "" {
		return 0, ErrNotBound
	}
	info, err := h.fs.Stat(h.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat '%s': %w", h.path, err)
	}
	return info.Size(), nil
}

// Exists reports whether path is present in fsys. It needs no handle.
func Exists(fsys filesystem.FileSystem, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

// Copy writes the bound file's current content to dst, replacing dst if it
// exists. The handle's binding and cursor are unchanged.
func (h *Handle) Copy(dst string) error {
	if h.path == "" {
		return ErrNotBound
	}
	if filepath.Clean(dst) == filepath.Clean(h.path) {
		return fmt.Errorf("%w: cannot copy '%s' onto itself", ErrInvalidArgument, h.path)
	}

	src, err := h.fs.Open(h.path)
	if err != nil {
		return fmt.Errorf("failed to open '%s' for copy: %w", h.path, err)
	}
	defer src.Close()

	out, err := h.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, h.Perm)
	if err != nil {
		return fmt.Errorf("failed to create copy destination '%s': %w", dst, err)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy '%s' to '%s': %w", h.path, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close copy destination '%s': %w", dst, err)
	}

	h.logger.Debug("Copied file", "from", h.path, "to", dst, "bytes", n)
	return nil
}

// Delete closes the handle if needed, removes the bound file and unbinds it.
// A second call returns ErrNotBound.
func (h *Handle) Delete() error {
	if h.path == "" {
		return ErrNotBound
	}
	if _, err := h.Close(); err != nil {
		h.logger.Warn("Failed to close file before delete", "path", h.path, "error", err)
	}
	if err := h.fs.Remove(h.path); err != nil {
		return fmt.Errorf("failed to delete '%s': %w", h.path, err)
	}
	h.logger.Debug("Deleted file", "path", h.path)
	h.path = ""
	return nil
}

// Rename moves the bound file to newPath and rebinds the handle to it. An
// open stream stays open. Existing destinations are refused unless Overwrite is set.
func (h *Handle) Rename(newPath string) error {
	if h.path == "" {
		return ErrNotBound
	}
	if !h.Overwrite && Exists(h.fs, newPath) {
		return fmt.Errorf("failed to rename '%s' to '%s': %w", h.path, newPath, ErrDestinationExists)
	}
	if err := h.fs.Rename(h.path, newPath); err != nil {
		return fmt.Errorf("failed to rename '%s' to '%s': %w", h.path, newPath, err)
	}
	h.logger.Debug("Renamed file", "from", h.path, "to", newPath)
	h.path = newPath
	return nil
}

// LineLengths reads from the cursor to end-of-stream and returns the length
// of each line in characters. The cursor is left at end-of-stream; Seek(0)
// first to measure the whole file.
func (h *Handle) LineLengths() ([]int, error) {
	if h.file == nil {
		return nil, ErrNotOpen
	}
	lengths := make([]int, 0)
	for line, err := range h.Lines() {
		if err != nil {
			return lengths, err
		}
		lengths = append(lengths, utf8.RuneCountInString(line))
	}
	return lengths, nil
}

// CountLines counts the lines of the bound file through a separate reader,
// so the handle's cursor is not disturbed. A final line without a newline counts.
func (h *Handle) CountLines() (int, error) {
	if h.path == "" {
		return 0, ErrNotBound
	}
	f, err := h.fs.Open(h.path)
	if err != nil {
		return 0, fmt.Errorf("failed to open '%s' for counting: %w", h.path, err)
	}
	defer f.Close()

	count := 0
	pending := false
	buf := make([]byte, 32*1024)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			pending = buf[n-1] != '\n'
		}
		if rerr != nil {
			if isEOF(rerr) {
				break
			}
			return 0, fmt.Errorf("failed to read '%s': %w", h.path, rerr)
		}
	}
	if pending {
		count++
	}
	return count, nil
}
