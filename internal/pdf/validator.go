package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/joshasn/medical-form-app-sub001/internal/pdf/errors"
)

// headerWindow mirrors the leniency of the document loader.
const headerWindow = 1024

// Validator enforces the file size limit and basic PDF shape before a file
// reaches the document loader
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad,
			"path is a directory, not a file", filePath)
	}

	if !isPDFName(filePath) {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad, "file is not a PDF", filePath)
	}

	if fileInfo.Size() == 0 {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeDocumentLoad, "file is empty", filePath)
	}

	return v.checkSize(fileInfo.Size())
}

func (v *Validator) checkSize(size int64) error {
	if size > v.maxFileSize {
		return pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeSecurityRestriction, "file too large",
			fmt.Sprintf("%d bytes (max: %d bytes)", size, v.maxFileSize))
	}
	return nil
}

// ReadFile validates and reads the PDF at filePath
func (v *Validator) ReadFile(filePath string) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to open PDF file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "cannot access file", err)
	}
	if err := v.ValidateFileInfo(filePath, info); err != nil {
		return nil, err
	}

	// the file may grow between Stat and Read
	data, err := io.ReadAll(io.LimitReader(f, v.maxFileSize+1))
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeDocumentLoad, "failed to read PDF file", err)
	}
	if err := v.ValidateBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateBytes checks size and the %PDF- header of in-memory content
func (v *Validator) ValidateBytes(data []byte) error {
	if len(data) == 0 {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeDocumentLoad, "empty document")
	}
	if err := v.checkSize(int64(len(data))); err != nil {
		return err
	}
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if !bytes.Contains(window, []byte("%PDF-")) {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeDocumentLoad, "missing PDF header")
	}
	return nil
}

// IsValidPDF performs a quick check to see if a file looks like a readable PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	_, err := v.ReadFile(filePath)
	return err == nil
}

func isPDFName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
