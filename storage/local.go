package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/cartpix/cartpix/models"
)

// accessStubName is the directory-level access control stub written once per
// storage root. It only matters behind Apache-style front ends; serving never
// depends on it.
const accessStubName = ".htaccess"

// LocalStore writes attachments under a single directory on an injected
// filesystem. Destination names are "<unix-seconds>-<sanitized-name>", which
// gives collision resistance at second granularity plus name entropy only; a
// known limitation of the scheme, not something this layer papers over.
type LocalStore struct {
	fs          afero.Fs
	root        string
	publicBase  string
	allowedExts []string

	now func() time.Time
}

// NewLocalStore creates a LocalStore rooted at root. publicBase is the URL
// prefix recorded on attachment records; allowedExts feeds the access stub.
func NewLocalStore(fs afero.Fs, root, publicBase string, allowedExts []string) *LocalStore {
	return &LocalStore{
		fs:          fs,
		root:        root,
		publicBase:  strings.TrimRight(publicBase, "/"),
		allowedExts: allowedExts,
		now:         time.Now,
	}
}

// Save persists src under a timestamped sanitized name and returns the record.
// A failed write never leaves a partial file behind a returned record.
func (s *LocalStore) Save(originalName string, src io.Reader) (models.Attachment, error) {
	if err := s.ensureRoot(); err != nil {
		return models.Attachment{}, err
	}

	name := fmt.Sprintf("%d-%s", s.now().Unix(), SanitizeName(originalName))
	dst := s.resolve(name)

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("storage: create %s: %w", name, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = s.fs.Remove(dst)
		return models.Attachment{}, fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		_ = s.fs.Remove(dst)
		return models.Attachment{}, fmt.Errorf("storage: close %s: %w", name, err)
	}

	return models.Attachment{
		FilePath: dst,
		FileURL:  s.publicBase + "/" + name,
		FileName: name,
	}, nil
}

// Delete removes the named file. ErrNotFound when it is already gone.
func (s *LocalStore) Delete(fileName string) error {
	dst := s.resolve(fileName)
	if _, err := s.fs.Stat(dst); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: stat %s: %w", fileName, err)
	}
	if err := s.fs.Remove(dst); err != nil {
		return fmt.Errorf("storage: remove %s: %w", fileName, err)
	}
	return nil
}

// Exists reports whether the named file is present under the root.
func (s *LocalStore) Exists(fileName string) bool {
	_, err := s.fs.Stat(s.resolve(fileName))
	return err == nil
}

// Open returns a reader over the stored bytes.
func (s *LocalStore) Open(fileName string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.resolve(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: open %s: %w", fileName, err)
	}
	return f, nil
}

// Size returns the stored byte length of the named file.
func (s *LocalStore) Size(fileName string) (int64, error) {
	info, err := s.fs.Stat(s.resolve(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("storage: stat %s: %w", fileName, err)
	}
	return info.Size(), nil
}

// resolve maps a bare file name to its path under the root. Base strips any
// path segments a caller may have left in.
func (s *LocalStore) resolve(name string) string {
	return filepath.Join(s.root, filepath.Base(name))
}

// ensureRoot creates the storage root when absent and lazily drops the access
// stub on first use. Concurrent first writers may race on the stub; the
// create-if-absent open makes the loser a silent no-op.
func (s *LocalStore) ensureRoot() error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("storage: create root %s: %w", s.root, err)
	}

	stubPath := filepath.Join(s.root, accessStubName)
	f, err := s.fs.OpenFile(stubPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("storage: create access stub: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(s.accessStub()); err != nil {
		return fmt.Errorf("storage: write access stub: %w", err)
	}
	return nil
}

// accessStub denies direct directory access, re-allows embedding of the
// admissible image extensions, and leaves retrieval to the download action.
func (s *LocalStore) accessStub() string {
	exts := strings.Join(s.allowedExts, "|")
	var b strings.Builder
	b.WriteString("# Managed by cartpix; created once, never rewritten.\n")
	b.WriteString("Options -Indexes\n")
	b.WriteString("<IfModule mod_authz_core.c>\n")
	b.WriteString("    Require all denied\n")
	b.WriteString("</IfModule>\n")
	fmt.Fprintf(&b, "<FilesMatch \"\\.(%s)$\">\n", exts)
	b.WriteString("    Require all granted\n")
	b.WriteString("</FilesMatch>\n")
	b.WriteString("# Downloads are served through the action endpoint, not this directory.\n")
	return b.String()
}

// SanitizeName reduces an uploaded file name to a safe bare name: path
// segments stripped, unsafe runes replaced, extension preserved and lowered.
func SanitizeName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "file"
	}

	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		cleaned = "file"
	}
	return cleaned + ext
}
