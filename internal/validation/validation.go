// Package validation contains the static input checks applied before any
// state is touched: bot names, start commands, email addresses, and upload
// filenames.
package validation

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	botNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)
	emailRe   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	unsafeFilenameCharRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	// Patterns that could smuggle extra commands into the container's shell
	// line. A match is a hard rejection; no sanitization is attempted.
	dangerousCommandRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)&&`),       // command chaining
		regexp.MustCompile(`(?i)\|\|`),     // or operator
		regexp.MustCompile(`(?i);`),        // command separator
		regexp.MustCompile(`(?i)\|`),       // pipe
		regexp.MustCompile(`(?i)>`),        // redirect output
		regexp.MustCompile(`(?i)<`),        // redirect input
		regexp.MustCompile("(?i)`"),        // command substitution
		regexp.MustCompile(`(?i)\$\(`),     // command substitution
		regexp.MustCompile(`(?i)bash`),     // shell execution
		regexp.MustCompile(`(?i)sh `),      // shell execution
		regexp.MustCompile(`(?i)/bin/`),    // direct binary execution
		regexp.MustCompile(`(?i)rm `),      // file deletion
		regexp.MustCompile(`(?i)dd `),      // disk operations
		regexp.MustCompile(`(?i)mkfs`),     // format filesystem
		regexp.MustCompile(`(?i)curl.*\|`), // pipe from curl
		regexp.MustCompile(`(?i)wget.*\|`), // pipe from wget
	}
)

// ValidStartCommand reports whether a user-supplied start command is safe to
// splice into the sandbox shell line.
func ValidStartCommand(command string) bool {
	if command == "" || len(command) > 500 {
		return false
	}
	for _, re := range dangerousCommandRes {
		if re.MatchString(command) {
			return false
		}
	}
	return true
}

// ValidBotName reports whether name is 3-50 chars of [A-Za-z0-9_-].
func ValidBotName(name string) bool {
	return botNameRe.MatchString(name)
}

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// SanitizeFilename strips directory components and dangerous characters from
// a client-supplied filename. The result contains only [A-Za-z0-9._-] and is
// at most 255 characters, with the extension preserved. Idempotent.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	// filepath.Base never returns "", unlike Python's basename; fold its
	// "."/".." results to empty so repeated sanitization is stable.
	if filename == "." || filename == ".." {
		filename = ""
	}

	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, `\`, "")

	filename = unsafeFilenameCharRe.ReplaceAllString(filename, "_")

	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		stem := strings.TrimSuffix(filename, ext)
		keep := 255 - len(ext)
		if keep < 0 {
			keep = 0
		}
		if len(stem) > keep {
			stem = stem[:keep]
		}
		filename = stem + ext
	}

	return filename
}
