package template

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/stackvity/filehandle/internal/filesystem"
)

// Executor handles parsing and executing custom Go templates.
// This is used when a user specifies a template file via configuration.
type Executor struct {
	template *template.Template
	filePath string // Path to the template file for error reporting
}

// NewExecutor creates a new template executor by parsing the specified template file.
// Returns nil, nil if templateFilePath is empty, allowing the caller to handle default logic.
// Returns an error if the file cannot be read or parsed.
func NewExecutor(templateFilePath string, fs filesystem.FileSystem) (*Executor, error) {
	if templateFilePath == "" {
		return nil, nil
	}

	templateContent, err := fs.ReadFile(templateFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templateFilePath, err)
	}

	// The template file path doubles as the template name for better error messages.
	tmpl, err := template.New(templateFilePath).Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templateFilePath, err)
	}

	return &Executor{
		template: tmpl,
		filePath: templateFilePath,
	}, nil
}

// Execute applies the parsed template to data and returns the rendered text.
func (e *Executor) Execute(data any) (string, error) {
	var rendered bytes.Buffer
	if err := e.template.Execute(&rendered, data); err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", e.filePath, err)
	}
	return rendered.String(), nil
}
