package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

const (
	minDPI = 36
	maxDPI = 1200

	// PDF readers accept the header anywhere in the first 1024 bytes.
	headerWindow = 1024
	largeFileMB  = 100
)

var pdfMagic = []byte("%PDF-")

// Validator provides input validation for PDF files
type Validator struct {
	onLargeFile func(sizeMB int64)
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath checks that path points to a readable file carrying a PDF header.
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.LoadError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.LoadError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.LoadError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.LoadError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	if sizeMB := info.Size() / (1024 * 1024); sizeMB > largeFileMB && v.onLargeFile != nil {
		v.onLargeFile(sizeMB)
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.LoadError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer file.Close()

	head := make([]byte, headerWindow)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return domain.LoadError(fmt.Sprintf("cannot read file: %s", path), err)
	}

	if !bytes.Contains(head[:n], pdfMagic) {
		return domain.LoadError(fmt.Sprintf("file is not a PDF: %s", path), nil)
	}

	return nil
}

// ValidateDPI validates the rendering resolution
func (v *Validator) ValidateDPI(dpi int) error {
	if dpi < minDPI || dpi > maxDPI {
		return domain.ValidationError(fmt.Sprintf("dpi must be between %d and %d, got %d", minDPI, maxDPI, dpi), nil)
	}
	return nil
}

// ValidateQuality validates the JPEG quality parameter
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}
