// Package artifacts persists user-supplied bot source trees on local
// storage. Uploads are validated member-by-member and staged into a scratch
// directory before replacing the live tree, so a rejected archive never
// leaves the bot directory half-written.
package artifacts

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bothive/internal/runtimes"
	"bothive/internal/validation"
	"bothive/pkg/models"
)

// Sentinel file preserved across uploads.
const gitkeep = ".gitkeep"

type Store struct {
	basePath string
}

func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// PathFor returns the canonical directory for a bot, creating it if absent.
func (s *Store) PathFor(botID int64) (string, error) {
	dir := filepath.Join(s.basePath, fmt.Sprintf("%d", botID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bot directory: %w", err)
	}
	return dir, nil
}

// IsEmpty reports whether the bot directory contains any user content,
// ignoring the sentinel.
func (s *Store) IsEmpty(botID int64) (bool, error) {
	dir, err := s.PathFor(botID)
	if err != nil {
		return false, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.Name() != gitkeep {
			return false, nil
		}
	}
	return true, nil
}

// Remove deletes the bot directory and everything under it. A directory that
// is already gone counts as removed.
func (s *Store) Remove(botID int64) error {
	return os.RemoveAll(filepath.Join(s.basePath, fmt.Sprintf("%d", botID)))
}

// IngestResult reports what was stored.
type IngestResult struct {
	Filename   string
	SourceType models.SourceType
}

// Ingest replaces the bot's source tree with the uploaded payload. A
// filename ending in .zip is treated as an archive and extracted; anything
// else is stored as a single file whose extension must be in the runtime's
// allow-list. The previous tree survives any validation failure.
func (s *Store) Ingest(botID int64, rt runtimes.Runtime, filename string, r io.Reader) (*IngestResult, error) {
	dir, err := s.PathFor(botID)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = "upload"
	}
	filename = validation.SanitizeFilename(filename)

	staging, err := os.MkdirTemp(s.basePath, fmt.Sprintf(".staging-%d-", botID))
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	var sourceType models.SourceType
	if strings.HasSuffix(filename, ".zip") {
		if err := s.extractZip(staging, filename, rt, r); err != nil {
			return nil, err
		}
		sourceType = models.SourceZip
	} else {
		ext := fileExt(filename)
		if !rt.ExtensionAllowed(ext) || ext == "" {
			return nil, models.Validationf("File type %s not allowed for this runtime", ext)
		}
		dst, err := os.Create(filepath.Join(staging, filename))
		if err != nil {
			return nil, fmt.Errorf("create file: %w", err)
		}
		if _, err := io.Copy(dst, r); err != nil {
			dst.Close()
			return nil, fmt.Errorf("write file: %w", err)
		}
		if err := dst.Close(); err != nil {
			return nil, fmt.Errorf("close file: %w", err)
		}
		sourceType = models.SourceFile
	}

	if err := swapContents(staging, dir); err != nil {
		return nil, err
	}

	return &IngestResult{Filename: filename, SourceType: sourceType}, nil
}

// extractZip writes the archive to the staging area, validates every member,
// and only then extracts. The archive file itself is removed afterwards.
func (s *Store) extractZip(staging, filename string, rt runtimes.Runtime, r io.Reader) error {
	zipPath := filepath.Join(staging, filename)
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write archive file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return models.Validationf("Invalid zip file")
	}
	defer zr.Close()

	// Validate all members before a single byte hits disk.
	for _, member := range zr.File {
		if err := checkMemberPath(member.Name); err != nil {
			return err
		}
		if isDirMember(member) {
			continue
		}
		ext := fileExt(member.Name)
		if !rt.ExtensionAllowed(ext) {
			return models.Validationf("File type %s not allowed for this runtime", ext)
		}
	}

	for _, member := range zr.File {
		target := filepath.Join(staging, filepath.FromSlash(member.Name))
		if isDirMember(member) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		if err := extractMember(member, target); err != nil {
			return err
		}
	}

	if err := os.Remove(zipPath); err != nil {
		return fmt.Errorf("remove archive file: %w", err)
	}
	return nil
}

func extractMember(member *zip.File, target string) error {
	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("open zip member: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create extracted file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract zip member: %w", err)
	}
	return dst.Close()
}

// checkMemberPath rejects absolute member paths and any path containing a
// ".." segment.
func checkMemberPath(name string) error {
	if name == "" {
		return models.Validationf("Invalid file path in zip")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return models.Validationf("Invalid file path in zip")
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return models.Validationf("Invalid file path in zip")
		}
	}
	return nil
}

// fileExt is like path.Ext but treats dotfiles such as .gitignore as having
// no extension.
func fileExt(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := path.Ext(base)
	if ext == base {
		return ""
	}
	return ext
}

func isDirMember(member *zip.File) bool {
	return strings.HasSuffix(member.Name, "/") || member.FileInfo().IsDir()
}

// swapContents clears dst (keeping the sentinel) and moves everything from
// staging into it. Runs only after the whole payload has been validated and
// materialized.
func swapContents(staging, dst string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return fmt.Errorf("read bot directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == gitkeep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
			return fmt.Errorf("clear bot directory: %w", err)
		}
	}

	staged, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("read staging directory: %w", err)
	}
	for _, e := range staged {
		from := filepath.Join(staging, e.Name())
		to := filepath.Join(dst, e.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("move staged content: %w", err)
		}
	}
	return nil
}
