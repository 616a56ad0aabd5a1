package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/filehandle/internal/filesystem"
)

type statData struct {
	Path string
	Size int64
}

// TestNewExecutor covers parsing valid templates, handling missing files and invalid syntax.
func TestNewExecutor(t *testing.T) {
	mockFS := filesystem.NewMockFileSystem()
	validTemplatePath := filepath.Join("templates", "valid.tmpl")
	invalidSyntaxPath := filepath.Join("templates", "invalid_syntax.tmpl")
	nonExistentPath := filepath.Join("templates", "nonexistent.tmpl")

	require.NoError(t, mockFS.AddFile(validTemplatePath, []byte(`{{ .Path }} is {{ .Size }} bytes`)))
	require.NoError(t, mockFS.AddFile(invalidSyntaxPath, []byte(`{{ .Path`)))

	t.Run("ValidTemplate", func(t *testing.T) {
		executor, err := NewExecutor(validTemplatePath, mockFS)
		require.NoError(t, err)
		require.NotNil(t, executor)
		assert.NotNil(t, executor.template)
		assert.Equal(t, validTemplatePath, executor.filePath)
	})

	t.Run("NonExistentTemplateFile", func(t *testing.T) {
		executor, err := NewExecutor(nonExistentPath, mockFS)
		assert.Error(t, err)
		assert.Nil(t, executor)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("InvalidTemplateSyntax", func(t *testing.T) {
		executor, err := NewExecutor(invalidSyntaxPath, mockFS)
		assert.Error(t, err)
		assert.Nil(t, executor)
		assert.Contains(t, err.Error(), "template:")
	})

	t.Run("EmptyTemplatePath", func(t *testing.T) {
		executor, err := NewExecutor("", mockFS)
		assert.NoError(t, err)
		assert.Nil(t, executor)
	})
}

// TestExecutor_Execute covers successful execution and template execution errors.
func TestExecutor_Execute(t *testing.T) {
	fsys := filesystem.NewMemFileSystem()

	t.Run("SuccessfulExecution", func(t *testing.T) {
		require.NoError(t, fsys.WriteFile("ok.tmpl", []byte(`{{ .Path }}: {{ .Size }}`), 0644))
		executor, err := NewExecutor("ok.tmpl", fsys)
		require.NoError(t, err)

		rendered, err := executor.Execute(statData{Path: "/tmp/a.txt", Size: 42})
		assert.NoError(t, err)
		assert.Equal(t, "/tmp/a.txt: 42", rendered)
	})

	t.Run("ExecutionError_UnknownField", func(t *testing.T) {
		require.NoError(t, fsys.WriteFile("bad_field.tmpl", []byte(`{{ .Path }} {{ .Owner }}`), 0644))
		executor, err := NewExecutor("bad_field.tmpl", fsys)
		require.NoError(t, err)

		rendered, err := executor.Execute(statData{Path: "/tmp/a.txt"})
		assert.Error(t, err)
		assert.Empty(t, rendered)
		assert.Contains(t, err.Error(), "can't evaluate field Owner")
		assert.Contains(t, err.Error(), "bad_field.tmpl")
	})
}
