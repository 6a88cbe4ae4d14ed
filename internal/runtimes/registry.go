// Package runtimes holds the static catalog of execution profiles a bot may
// run under. The registry is the single source of truth for what a runtime is
// permitted to contain and execute; no code path may bypass it.
package runtimes

import (
	"bothive/pkg/models"
)

// Runtime is an immutable descriptor for one registered execution profile.
type Runtime struct {
	Image             string
	BuildCmd          string
	DefaultStart      string
	WorkingDir        string
	AllowedExtensions []string
}

var registry = map[models.BotRuntime]Runtime{
	models.RuntimePython: {
		Image:             "python:3.11-slim",
		BuildCmd:          "pip install --no-cache-dir -r requirements.txt",
		DefaultStart:      "python main.py",
		WorkingDir:        "/app",
		AllowedExtensions: []string{".py", ".txt", ".json", ".yaml", ".yml"},
	},
	models.RuntimeNode: {
		Image:        "node:20-alpine",
		BuildCmd:     "npm install",
		DefaultStart: "node index.js",
		WorkingDir:   "/app",
		// .ts is accepted without a transpile step; a TypeScript entrypoint
		// only works if the uploaded package pulls in its own runner.
		AllowedExtensions: []string{".js", ".json", ".ts"},
	},
}

// Get returns the descriptor for tag.
func Get(tag models.BotRuntime) (Runtime, error) {
	rt, ok := registry[tag]
	if !ok {
		return Runtime{}, models.NewError(models.KindUnsupportedRuntime, "Unsupported runtime: %s", tag)
	}
	return rt, nil
}

// ExtensionAllowed reports whether ext (including the leading dot) may be
// persisted under this runtime. Empty extensions such as dotfiles are always
// accepted.
func (r Runtime) ExtensionAllowed(ext string) bool {
	if ext == "" {
		return true
	}
	for _, allowed := range r.AllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	return false
}
