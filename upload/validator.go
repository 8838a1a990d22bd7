// Package upload implements the admission pipeline for cart attachments:
// anti-forgery token check, extension allow-set, and content sniffing.
package upload

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNoFile reports an upload field without a file.
	ErrNoFile = errors.New("upload: no file submitted")
	// ErrTokenMissing reports an absent anti-forgery token.
	ErrTokenMissing = errors.New("upload: form token missing")
	// ErrTokenInvalid reports an anti-forgery token that failed verification.
	ErrTokenInvalid = errors.New("upload: form token invalid")
	// ErrTypeNotAllowed reports an extension outside the allow-set.
	ErrTypeNotAllowed = errors.New("upload: file type not allowed")
	// ErrTypeMismatch reports sniffed content disagreeing with the extension.
	ErrTypeMismatch = errors.New("upload: file content does not match its extension")
)

// TokenVerifier checks a submitted anti-forgery token. Tokens are valid for
// their whole time window; single use is deliberately not enforced.
type TokenVerifier interface {
	Verify(token string) error
}

// Admitted is the validator's output: a file confirmed to meet the type and
// security checks, not yet persisted.
type Admitted struct {
	OriginalName string
	Ext          string // lowercase, without dot
	Size         int64
	MIME         string
}

// Validator gates uploads before they reach the store. The extension
// allow-set is injected, never hard-coded.
type Validator struct {
	allowed map[string]struct{}
	tokens  TokenVerifier
}

// NewValidator builds a Validator over the given allow-set and token verifier.
func NewValidator(allowedExts []string, tokens TokenVerifier) *Validator {
	allowed := make(map[string]struct{}, len(allowedExts))
	for _, e := range allowedExts {
		allowed[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}
	return &Validator{allowed: allowed, tokens: tokens}
}

// Admit validates one raw upload descriptor. src is rewound before returning
// so the caller can hand the same reader to the store. Admit has no side
// effects on failure.
func (v *Validator) Admit(originalName string, size int64, src io.ReadSeeker, token string) (*Admitted, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	if err := v.tokens.Verify(token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if src == nil || originalName == "" {
		return nil, ErrNoFile
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if _, ok := v.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w: .%s", ErrTypeNotAllowed, ext)
	}

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("upload: sniff content: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("upload: rewind: %w", err)
	}
	if !contentMatchesExt(mtype, ext) {
		return nil, fmt.Errorf("%w: claimed .%s, detected %s", ErrTypeMismatch, ext, mtype.String())
	}

	return &Admitted{
		OriginalName: originalName,
		Ext:          ext,
		Size:         size,
		MIME:         mtype.String(),
	}, nil
}

// mimeByExt maps the stock image extensions to the sniffed type they must
// carry. Extensions added through configuration fall back to comparing the
// detector's own canonical extension.
var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func contentMatchesExt(mtype *mimetype.MIME, ext string) bool {
	if want, ok := mimeByExt[ext]; ok {
		return mtype.Is(want)
	}
	return strings.EqualFold(mtype.Extension(), "."+ext)
}

// ProductEligible reports whether the attachment feature applies to a product.
// An empty id list admits every product; an empty category list or a "*"
// entry admits every category.
func ProductEligible(productID uint, category string, allowedIDs []uint, allowedCategories []string) bool {
	if len(allowedIDs) > 0 {
		found := false
		for _, id := range allowedIDs {
			if id == productID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(allowedCategories) == 0 {
		return true
	}
	for _, c := range allowedCategories {
		if c == "*" || strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
