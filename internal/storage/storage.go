// Package storage keeps card artifacts in a flat directory.
//
// Layout:
//
//	{dir}/{cardId}.html   rendered card, source of truth
//	{dir}/{cardId}.pdf    cached PDF rendition, created on first download
//
// WHY FILES AND NOT A DATABASE?
// Both services share the directory: the card service writes the HTML, the
// render service hands the same file to wkhtmltopdf, and the card service
// caches the PDF next to it. The converter is handed a file path, and the
// docker converter mounts the same directory into its sandbox.
//
// PATH SAFETY:
// Paths are only ever built from well-formed identifiers (32 lowercase hex
// characters), so user input can never escape the directory. Path rejects
// anything else before a file name is formed.
//
// ATOMIC WRITES:
// Writes go through a temporary file in the same directory and a rename.
// os.Rename within one directory replaces the target in a single step, so a
// reader sees either the previous artifact or the complete new one, never a
// half-written file.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/card"
)

const (
	ExtHTML = "html"
	ExtPDF  = "pdf"
)

var errMalformedID = errors.New("storage: malformed card id")

// Store is a directory of card artifacts.
type Store struct {
	dir string
}

// New opens the store at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving %s: %w", dir, err)
	}
	return &Store{dir: abs}, nil
}

// Dir is the absolute storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the artifact path of cardID with extension ext.
func (s *Store) Path(cardID, ext string) (string, error) {
	if !card.IsWellFormedID(cardID) {
		return "", errMalformedID
	}
	return filepath.Join(s.dir, cardID+"."+ext), nil
}

// Exists reports whether a rendered card is stored for cardID.
func (s *Store) Exists(cardID string) bool {
	return s.has(cardID, ExtHTML)
}

// HasPDF reports whether a cached PDF is stored for cardID.
func (s *Store) HasPDF(cardID string) bool {
	return s.has(cardID, ExtPDF)
}

func (s *Store) has(cardID, ext string) bool {
	p, err := s.Path(cardID, ext)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// WriteHTML stores the rendered card, replacing any previous rendition.
func (s *Store) WriteHTML(cardID string, html []byte) error {
	return s.write(cardID, ExtHTML, html)
}

// ReadHTML returns the stored card document byte for byte.
func (s *Store) ReadHTML(cardID string) ([]byte, error) {
	return s.read(cardID, ExtHTML)
}

// WritePDF caches the PDF rendition of a card.
func (s *Store) WritePDF(cardID string, pdf []byte) error {
	return s.write(cardID, ExtPDF, pdf)
}

// ReadPDF returns the cached PDF rendition of a card.
func (s *Store) ReadPDF(cardID string) ([]byte, error) {
	return s.read(cardID, ExtPDF)
}

func (s *Store) read(cardID, ext string) ([]byte, error) {
	p, err := s.Path(cardID, ext)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.NotFound("card "+ext, cardID)
		}
		return nil, fmt.Errorf("storage: reading %s: %w", filepath.Base(p), err)
	}
	return b, nil
}

func (s *Store) write(cardID, ext string, data []byte) error {
	p, err := s.Path(cardID, ext)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+cardID+"-*."+ext+".tmp")
	if err != nil {
		return fmt.Errorf("storage: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("storage: writing %s: %w", filepath.Base(p), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("storage: setting mode on %s: %w", filepath.Base(p), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("storage: closing %s: %w", filepath.Base(p), err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return fmt.Errorf("storage: renaming into %s: %w", filepath.Base(p), err)
	}
	return nil
}
