package id

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/sepadd/internal/model"
)

// MaxLen keeps the generated PmtInfId "{id}-{sequenceType}" within Max35Text.
const MaxLen = model.MaxBatchIDLen

// Ext is the extension of stored documents.
const Ext = ".xml"

// Validate checks that id can name a stored document.
func Validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is empty", model.ErrInvalidArgument)
	case len(id) > MaxLen:
		return fmt.Errorf("%w: id %q longer than %d characters", model.ErrInvalidArgument, id, MaxLen)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: id %q contains a path separator", model.ErrInvalidArgument, id)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: id %q starts with a dot", model.ErrInvalidArgument, id)
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("%w: id %q has surrounding whitespace", model.ErrInvalidArgument, id)
	}
	return nil
}

// FileName returns the document file name for id: "BATCH-1" -> "BATCH-1.xml".
func FileName(id string) string {
	return id + Ext
}

// FromFileName reverses FileName. Hidden files, temp files and anything that
// is not a valid id report false.
func FromFileName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	base, ok := strings.CutSuffix(name, Ext)
	if !ok {
		return "", false
	}
	if Validate(base) != nil {
		return "", false
	}
	return base, true
}
