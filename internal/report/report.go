// Package report renders a file summary for the stat command.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/filehandle/internal/template"
)

// Summary describes a single file as seen through a handle.
type Summary struct {
	Path        string `json:"path" yaml:"path" toml:"path"`
	Exists      bool   `json:"exists" yaml:"exists" toml:"exists"`
	Size        int64  `json:"size" yaml:"size" toml:"size"`
	Lines       int    `json:"lines" yaml:"lines" toml:"lines"`
	LineLengths []int  `json:"lineLengths" yaml:"lineLengths" toml:"lineLengths"`
}

// Longest returns the length of the longest line, or 0 for an empty file.
func (s Summary) Longest() int {
	longest := 0
	for _, n := range s.LineLengths {
		longest = max(longest, n)
	}
	return longest
}

// Render writes s to w in the given format. A non-nil exec takes precedence
// over format and receives s as its data.
func Render(w io.Writer, s Summary, format string, exec *template.Executor) error {
	if exec != nil {
		out, err := exec.Execute(s)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}

	switch format {
	case "", "text":
		return renderText(w, s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode summary as yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("failed to encode summary as toml: %w", err)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode summary as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format '%s'", format)
	}
}

func renderText(w io.Writer, s Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Path:    %s\n", s.Path)
	if !s.Exists {
		b.WriteString("Exists:  no\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	b.WriteString("Exists:  yes\n")
	fmt.Fprintf(&b, "Size:    %d bytes\n", s.Size)
	fmt.Fprintf(&b, "Lines:   %d\n", s.Lines)
	fmt.Fprintf(&b, "Longest: %d\n", s.Longest())
	_, err := io.WriteString(w, b.String())
	return err
}
