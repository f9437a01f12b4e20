package intake

import (
	"archive/zip"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	_ "image/jpeg"
	_ "image/png"
)

// Category classifies a validated object.
type Category string

const (
	CategoryMedia       Category = "media"
	CategoryImage       Category = "image"
	CategoryDocument    Category = "document"
	CategoryUnsupported Category = "unsupported"
)

// Verdict is the outcome of certifying one file. Verdicts are values, not
// errors: an invalid file is an expected result, acted on by the caller.
type Verdict struct {
	Valid    bool
	Message  string
	Category Category
}

// Prober certifies media container integrity.
type Prober interface {
	Check(ctx context.Context, path string) error
}

type checkFunc func(ctx context.Context, localPath, declaredName string) Verdict

// Validator certifies file integrity per kind. Dispatch is a lookup table
// keyed by lowercased extension; an extension missing from the table is
// unsupported and always invalid, so every ingested object is either
// certified or rejected.
type Validator struct {
	checks map[string]checkFunc
}

// NewValidator builds the validator with its extension table.
func NewValidator(prober Prober) *Validator {
	v := &Validator{checks: make(map[string]checkFunc)}

	register := func(fn checkFunc, exts ...string) {
		for _, ext := range exts {
			v.checks[ext] = fn
		}
	}

	media := mediaCheck{prober: prober}
	register(media.check, ".mp4", ".mkv", ".mp3", ".wav", ".m4a")
	register(checkImage, ".jpg", ".jpeg", ".png")
	register(checkDocx, ".docx")
	register(checkPDF, ".pdf")

	return v
}

// objectExt returns the extension of an object name's base component. A
// name whose base starts with its only dot, like "caseA/.mp3", is a hidden
// file with no extension.
func objectExt(name string) string {
	base := path.Base(name)
	ext := path.Ext(base)
	if ext == base {
		return ""
	}
	return ext
}

// Validate certifies the downloaded file against its declared object name.
// The verdict is deterministic for a fixed file and name.
func (v *Validator) Validate(ctx context.Context, localPath, declaredName string) Verdict {
	ext := strings.ToLower(objectExt(declaredName))
	check, ok := v.checks[ext]
	if !ok {
		return Verdict{
			Category: CategoryUnsupported,
			Message:  fmt.Sprintf("Unsupported file type for %s; rejecting", declaredName),
		}
	}
	return check(ctx, localPath, declaredName)
}

type mediaCheck struct {
	prober Prober
}

func (m mediaCheck) check(ctx context.Context, localPath, declaredName string) Verdict {
	if _, err := os.Stat(localPath); err != nil {
		return Verdict{
			Category: CategoryMedia,
			Message:  fmt.Sprintf("File download failed: %s does not exist", localPath),
		}
	}
	if err := m.prober.Check(ctx, localPath); err != nil {
		return Verdict{
			Category: CategoryMedia,
			Message:  fmt.Sprintf("Invalid or corrupted media %s: %v", declaredName, err),
		}
	}
	return Verdict{
		Valid:    true,
		Category: CategoryMedia,
		Message:  fmt.Sprintf("%s passed integrity check", declaredName),
	}
}

func checkImage(_ context.Context, localPath, declaredName string) Verdict {
	f, err := os.Open(localPath)
	if err != nil {
		return Verdict{
			Category: CategoryImage,
			Message:  fmt.Sprintf("Corrupted image file %s: %v", declaredName, err),
		}
	}
	defer f.Close()

	if _, _, err := image.Decode(f); err != nil {
		return Verdict{
			Category: CategoryImage,
			Message:  fmt.Sprintf("Corrupted image file %s: %v", declaredName, err),
		}
	}
	return Verdict{
		Valid:    true,
		Category: CategoryImage,
		Message:  fmt.Sprintf("%s is a valid image", declaredName),
	}
}

func checkDocx(_ context.Context, localPath, declaredName string) Verdict {
	invalid := func(detail string) Verdict {
		return Verdict{
			Category: CategoryDocument,
			Message:  fmt.Sprintf("Corrupted DOCX file %s: %s", declaredName, detail),
		}
	}

	r, err := zip.OpenReader(localPath)
	if err != nil {
		return invalid(err.Error())
	}
	defer r.Close()

	var document *zip.File
	var hasContentTypes bool
	for _, f := range r.File {
		switch f.Name {
		case "word/document.xml":
			document = f
		case "[Content_Types].xml":
			hasContentTypes = true
		}
	}
	if document == nil || !hasContentTypes {
		return invalid("missing required document parts")
	}

	// Read the document part fully so the CRC is verified.
	rc, err := document.Open()
	if err != nil {
		return invalid(err.Error())
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return invalid(err.Error())
	}

	return Verdict{
		Valid:    true,
		Category: CategoryDocument,
		Message:  fmt.Sprintf("%s opened successfully", declaredName),
	}
}

func checkPDF(_ context.Context, localPath, declaredName string) Verdict {
	pages, err := pdfapi.PageCountFile(localPath)
	if err != nil {
		return Verdict{
			Category: CategoryDocument,
			Message:  fmt.Sprintf("Corrupted or unreadable PDF %s: %v", declaredName, err),
		}
	}
	return Verdict{
		Valid:    true,
		Category: CategoryDocument,
		Message:  fmt.Sprintf("%s opened successfully (%d pages)", declaredName, pages),
	}
}
