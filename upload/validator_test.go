package upload

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 64)...)
)

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(string) error { return s.err }

var defaultExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

func TestAdmitValidUpload(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{})

	src := bytes.NewReader(pngBytes)
	adm, err := v.Admit("photo.PNG", int64(len(pngBytes)), src, "tok")
	require.NoError(t, err)

	assert.Equal(t, "photo.PNG", adm.OriginalName)
	assert.Equal(t, "png", adm.Ext)
	assert.Equal(t, int64(len(pngBytes)), adm.Size)
	assert.Equal(t, "image/png", adm.MIME)

	// The reader must be rewound so the store sees the full content.
	rest, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, rest)
}

func TestAdmitTokenChecksRunFirst(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{err: errors.New("bad signature")})

	_, err := v.Admit("photo.png", 10, bytes.NewReader(pngBytes), "")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = v.Admit("photo.png", 10, bytes.NewReader(pngBytes), "tok")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAdmitRejectsDisallowedExtension(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{})

	_, err := v.Admit("malware.exe", 10, bytes.NewReader([]byte("MZ")), "tok")
	assert.ErrorIs(t, err, ErrTypeNotAllowed)

	_, err = v.Admit("notes.txt", 10, bytes.NewReader([]byte("hello")), "tok")
	assert.ErrorIs(t, err, ErrTypeNotAllowed)
}

func TestAdmitRejectsContentMismatch(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{})

	// PNG bytes behind a .jpg extension.
	_, err := v.Admit("photo.jpg", 10, bytes.NewReader(pngBytes), "tok")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// Plain text behind a .png extension.
	_, err = v.Admit("photo.png", 10, bytes.NewReader([]byte("just text here")), "tok")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestAdmitHonorsInjectedAllowSet(t *testing.T) {
	v := NewValidator([]string{"gif"}, stubVerifier{})

	_, err := v.Admit("photo.png", 10, bytes.NewReader(pngBytes), "tok")
	assert.ErrorIs(t, err, ErrTypeNotAllowed)

	adm, err := v.Admit("anim.gif", 10, bytes.NewReader(gifBytes), "tok")
	require.NoError(t, err)
	assert.Equal(t, "gif", adm.Ext)
}

func TestAdmitMatchesJpegAliases(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{})

	for _, name := range []string{"a.jpg", "a.JPEG"} {
		adm, err := v.Admit(name, 10, bytes.NewReader(jpegBytes), "tok")
		require.NoError(t, err, "name %q", name)
		assert.Equal(t, "image/jpeg", adm.MIME)
	}
}

func TestAdmitMissingFile(t *testing.T) {
	v := NewValidator(defaultExts, stubVerifier{})

	_, err := v.Admit("", 0, nil, "tok")
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestProductEligible(t *testing.T) {
	cases := []struct {
		name     string
		product  uint
		category string
		ids      []uint
		cats     []string
		want     bool
	}{
		{"no restrictions", 1, "prints", nil, nil, true},
		{"wildcard category", 1, "prints", nil, []string{"*"}, true},
		{"category match case-insensitive", 1, "prints", nil, []string{"Prints"}, true},
		{"category miss", 1, "mugs", nil, []string{"prints"}, false},
		{"id match", 7, "", []uint{3, 7}, nil, true},
		{"id miss", 8, "", []uint{3, 7}, nil, false},
		{"id match but category miss", 7, "mugs", []uint{7}, []string{"prints"}, false},
		{"id and wildcard category", 7, "mugs", []uint{7}, []string{"*"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProductEligible(tc.product, tc.category, tc.ids, tc.cats))
		})
	}
}
