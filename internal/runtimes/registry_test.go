package runtimes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bothive/pkg/models"
)

func TestGetPython(t *testing.T) {
	rt, err := Get(models.RuntimePython)
	require.NoError(t, err)

	assert.Equal(t, "python:3.11-slim", rt.Image)
	assert.Equal(t, "pip install --no-cache-dir -r requirements.txt", rt.BuildCmd)
	assert.Equal(t, "python main.py", rt.DefaultStart)
	assert.Equal(t, "/app", rt.WorkingDir)
	assert.ElementsMatch(t, []string{".py", ".txt", ".json", ".yaml", ".yml"}, rt.AllowedExtensions)
}

func TestGetNode(t *testing.T) {
	rt, err := Get(models.RuntimeNode)
	require.NoError(t, err)

	assert.Equal(t, "node:20-alpine", rt.Image)
	assert.Equal(t, "npm install", rt.BuildCmd)
	assert.Equal(t, "node index.js", rt.DefaultStart)
	assert.ElementsMatch(t, []string{".js", ".json", ".ts"}, rt.AllowedExtensions)
}

func TestGetUnknownRuntime(t *testing.T) {
	_, err := Get(models.BotRuntime("ruby"))
	require.Error(t, err)
	assert.Equal(t, models.KindUnsupportedRuntime, models.KindOf(err))
	assert.Contains(t, err.Error(), "ruby")
}

func TestExtensionAllowed(t *testing.T) {
	python, err := Get(models.RuntimePython)
	require.NoError(t, err)

	assert.True(t, python.ExtensionAllowed(".py"))
	assert.True(t, python.ExtensionAllowed(".yaml"))
	assert.False(t, python.ExtensionAllowed(".js"))
	assert.False(t, python.ExtensionAllowed(".sh"))
	assert.False(t, python.ExtensionAllowed(".exe"))

	// Dotfiles and extension-less files are always permitted.
	assert.True(t, python.ExtensionAllowed(""))
}
