package storage

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

func newTestStore(t *testing.T) (*LocalStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s := NewLocalStore(fs, "/data/attachments", "/static/attachments", testExts)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s, fs
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"photo.PNG", "photo.png"},
		{"photo.png", "photo.png"},
		{"my holiday pic.jpg", "my_holiday_pic.jpg"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\boot.png", "boot.png"},
		{"/etc/shadow.gif", "shadow.gif"},
		{"..", "file"},
		{"", "file"},
		{"??!!.webp", "file.webp"},
		{"weird&name#1.jpeg", "weird_name_1.jpeg"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeName(tc.in), "input %q", tc.in)
	}
}

func TestSaveGeneratesTimestampedName(t *testing.T) {
	s, _ := newTestStore(t)

	rec, err := s.Save("photo.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "1700000000-photo.png", rec.FileName)
	assert.Equal(t, filepath.Join("/data/attachments", "1700000000-photo.png"), rec.FilePath)
	assert.Equal(t, "/static/attachments/1700000000-photo.png", rec.FileURL)
	assert.True(t, s.Exists(rec.FileName))
}

func TestSaveWritesAccessStubOnce(t *testing.T) {
	s, fs := newTestStore(t)

	_, err := s.Save("a.png", strings.NewReader("x"))
	require.NoError(t, err)

	stubPath := filepath.Join("/data/attachments", accessStubName)
	content, err := afero.ReadFile(fs, stubPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Require all denied")
	assert.Contains(t, string(content), "jpg|jpeg|png|gif|webp")

	// An existing stub is never rewritten.
	require.NoError(t, afero.WriteFile(fs, stubPath, []byte("operator edited"), 0o644))
	_, err = s.Save("b.png", strings.NewReader("y"))
	require.NoError(t, err)

	content, err = afero.ReadFile(fs, stubPath)
	require.NoError(t, err)
	assert.Equal(t, "operator edited", string(content))
}

func TestOpenAndSizeRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	payload := []byte("some image bytes")
	rec, err := s.Save("pic.gif", bytes.NewReader(payload))
	require.NoError(t, err)

	size, err := s.Size(rec.FileName)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)

	f, err := s.Open(rec.FileName)
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	rec, err := s.Save("pic.webp", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(rec.FileName))
	assert.False(t, s.Exists(rec.FileName))

	err = s.Delete(rec.FileName)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveStripsPathSegments(t *testing.T) {
	s, fs := newTestStore(t)

	rec, err := s.Save("pic.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	// A traversal prefix reduces to the same bare name.
	assert.True(t, s.Exists("../../"+rec.FileName))

	// Files outside the root are unreachable even when they exist.
	require.NoError(t, afero.WriteFile(fs, "/data/secrets.txt", []byte("top"), 0o644))
	assert.False(t, s.Exists("../secrets.txt"))
	_, err = s.Open("../secrets.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Size("/etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSizeOfMissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Size("doesnotexist.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
