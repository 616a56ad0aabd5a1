package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackvity/filehandle/internal/config"
	"github.com/stackvity/filehandle/internal/filesystem"
	"github.com/stackvity/filehandle/internal/handle"
	"github.com/stackvity/filehandle/internal/report"
	"github.com/stackvity/filehandle/internal/template"
	"github.com/stackvity/filehandle/internal/watch"
)

// app carries the dependencies shared by every subcommand.
type app struct {
	opts   *config.Options
	logger *slog.Logger
	fs     filesystem.FileSystem
	exec   *template.Executor
}

func (a *app) newHandle() *handle.Handle {
	h := handle.New(a.fs, a.logger)
	if perm := a.opts.FileMode(); perm != 0 {
		h.Perm = perm
	}
	h.Overwrite = a.opts.Force
	return h
}

// release closes h, logging instead of failing. Used on read-only paths.
func (a *app) release(h *handle.Handle) {
	if _, err := h.Close(); err != nil {
		a.logger.Warn("Failed to close file", "path", h.Path(), "error", err)
	}
}

// --- cat ---

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <file>",
		Short: "Print a file line by line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(cli, args[0], cmd.OutOrStdout())
		},
	}
}

// runCat opens path, prints every line and closes it again. A read failure
// part-way through is reported after the lines printed so far.
func runCat(a *app, path string, w io.Writer) error {
	h := a.newHandle()
	if err := h.Open(path, handle.ModeRead); err != nil {
		return err
	}
	defer a.release(h)

	count := 0
	for line, err := range h.Lines() {
		if err != nil {
			return ioErr(fmt.Errorf("read failed after %d lines: %w", count, err))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return ioErr(err)
		}
		count++
	}
	a.logger.Debug("Printed file", "path", path, "lines", count)
	return nil
}

// --- read ---

type readOptions struct {
	offset int64
	bytes  int
	until  string
}

func newReadCmd() *cobra.Command {
	var ro readOptions
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Print bytes from an offset, a fixed count or up to a delimiter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cli, args[0], ro, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&ro.offset, "offset", 0, "Byte offset to start reading from")
	cmd.Flags().IntVar(&ro.bytes, "bytes", -1, "Number of bytes to read (-1 reads to end of file)")
	cmd.Flags().StringVar(&ro.until, "until", "", "Read up to this single-byte delimiter")
	cmd.MarkFlagsMutuallyExclusive("bytes", "until")
	return cmd
}

func runRead(a *app, path string, ro readOptions, w io.Writer) error {
	if ro.until != "" && len(ro.until) != 1 {
		return configErr(fmt.Errorf("--until must be a single byte (got '%s')", ro.until))
	}

	h := a.newHandle()
	if err := h.Open(path, handle.ModeRead); err != nil {
		return err
	}
	defer a.release(h)

	if ro.offset != 0 {
		if err := h.Seek(ro.offset); err != nil {
			return ioErr(err)
		}
	}

	var (
		data string
		err  error
	)
	switch {
	case ro.until != "":
		data, err = h.ReadUntil(ro.until[0])
	case ro.bytes >= 0:
		data, err = h.Read(ro.bytes)
	default:
		data, err = readRest(h)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return ioErr(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		return ioErr(err)
	}
	return nil
}

// readRest reads from the cursor to end-of-file.
func readRest(h *handle.Handle) (string, error) {
	size, err := h.Size()
	if err != nil {
		return "", err
	}
	remaining := size - h.Tell()
	if remaining <= 0 {
		return "", io.EOF
	}
	return h.Read(int(remaining))
}

// --- lens ---

func newLensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lens <file>",
		Short: "Print the length in characters of every line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLens(cli, args[0], cmd.OutOrStdout())
		},
	}
}

func runLens(a *app, path string, w io.Writer) error {
	h := a.newHandle()
	if err := h.Open(path, handle.ModeRead); err != nil {
		return err
	}
	defer a.release(h)

	lengths, err := h.LineLengths()
	if err != nil {
		return ioErr(err)
	}
	for i, n := range lengths {
		if _, err := fmt.Fprintf(w, "%d\t%d\n", i+1, n); err != nil {
			return ioErr(err)
		}
	}
	return nil
}

// --- stat ---

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <file>",
		Short: "Summarise a file: existence, size, line count and line lengths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat(cli, args[0], cmd.OutOrStdout())
		},
	}
}

func runStat(a *app, path string, w io.Writer) error {
	summary := report.Summary{Path: path, Exists: handle.Exists(a.fs, path)}
	if summary.Exists {
		if err := fillSummary(a, &summary); err != nil {
			return err
		}
	}
	if err := report.Render(w, summary, a.opts.Format, a.exec); err != nil {
		return ioErr(err)
	}
	return nil
}

func fillSummary(a *app, s *report.Summary) error {
	h := a.newHandle()
	if err := h.Open(s.Path, handle.ModeRead); err != nil {
		return err
	}
	defer a.release(h)

	var err error
	if s.Size, err = h.Size(); err != nil {
		return ioErr(err)
	}
	if s.Lines, err = h.CountLines(); err != nil {
		return ioErr(err)
	}
	if s.LineLengths, err = h.LineLengths(); err != nil {
		return ioErr(err)
	}
	return nil
}

// --- write ---

type writeOptions struct {
	append  bool
	newline bool
}

func newWriteCmd() *cobra.Command {
	var wo writeOptions
	cmd := &cobra.Command{
		Use:   "write <file> <text>...",
		Short: "Write text to a file, replacing or appending",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cli, args[0], args[1:], wo)
		},
	}
	cmd.Flags().BoolVar(&wo.append, "append", false, "Append instead of replacing the file content")
	cmd.Flags().BoolVar(&wo.newline, "newline", false, "Terminate every text argument with a newline")
	return cmd
}

func runWrite(a *app, path string, texts []string, wo writeOptions) error {
	lines := texts
	if wo.newline {
		lines = make([]string, len(texts))
		for i, t := range texts {
			lines[i] = t + "\n"
		}
	}

	h := a.newHandle()
	if wo.append {
		if err := h.Open(path, handle.ModeAppend); err != nil {
			return err
		}
		if err := h.Append(strings.Join(lines, "")); err != nil {
			a.release(h)
			return ioErr(err)
		}
	} else {
		if err := h.Open(path, handle.ModeWrite); err != nil {
			return err
		}
		if err := h.WriteLines(lines); err != nil {
			a.release(h)
			return ioErr(err)
		}
	}

	if err := h.Flush(); err != nil {
		a.release(h)
		return ioErr(err)
	}
	if _, err := h.Close(); err != nil {
		return ioErr(err)
	}
	a.logger.Debug("Wrote file", "path", path, "pieces", len(lines), "append", wo.append)
	return nil
}

// --- truncate ---

func newTruncateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <file> <size>",
		Short: "Resize a file to the given number of bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return configErr(fmt.Errorf("invalid size '%s': %w", args[1], err))
			}
			return runTruncate(cli, args[0], size)
		},
	}
}

func runTruncate(a *app, path string, size int64) error {
	h := a.newHandle()
	if err := h.Open(path, handle.ModeRead|handle.ModeWrite); err != nil {
		return err
	}
	if err := h.Truncate(size); err != nil {
		a.release(h)
		return ioErr(err)
	}
	if err := h.Flush(); err != nil {
		a.release(h)
		return ioErr(err)
	}
	if _, err := h.Close(); err != nil {
		return ioErr(err)
	}
	return nil
}

// --- cp / mv / rm ---

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file, replacing the destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(cli, args[0], args[1])
		},
	}
}

func runCopy(a *app, src, dst string) error {
	h := a.newHandle()
	if err := h.Open(src, handle.ModeRead); err != nil {
		return err
	}
	defer a.release(h)

	if err := h.Copy(dst); err != nil {
		return ioErr(err)
	}
	return nil
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Rename a file; an existing destination needs --force",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(cli, args[0], args[1])
		},
	}
}

func runMove(a *app, src, dst string) error {
	h := a.newHandle()
	if err := h.Bind(src); err != nil {
		return err
	}
	if err := h.Rename(dst); err != nil {
		return ioErr(err)
	}
	a.logger.Info("Moved file", "from", src, "to", dst)
	return nil
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cli, args[0])
		},
	}
}

func runRemove(a *app, path string) error {
	h := a.newHandle()
	if err := h.Bind(path); err != nil {
		return err
	}
	if err := h.Delete(); err != nil {
		return ioErr(err)
	}
	return nil
}

// --- tail ---

func newTailCmd() *cobra.Command {
	var fromStart bool
	cmd := &cobra.Command{
		Use:   "tail <file>",
		Short: "Print lines as they are appended to a file until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("from-start") {
				cli.opts.Watch.FromStart = fromStart
			}
			return runTail(cmd.Context(), cli, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Print the existing content before following")
	return cmd
}

// runTail follows path until ctx is done. A failed write to w ends the
// follow with an I/O error.
func runTail(ctx context.Context, a *app, path string, w io.Writer) error {
	follower := watch.NewFollower(a.fs, path, a.opts.Watch.Debounce, a.opts.Watch.FromStart, a.logger)
	err := follower.Run(ctx, func(line string) error {
		_, err := fmt.Fprintln(w, line)
		return err
	})
	if err != nil {
		// exitCode still sees interruption and open failures through the wrap.
		return ioErr(err)
	}
	return nil
}
