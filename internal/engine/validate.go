package engine

import (
	"fmt"

	"github.com/roach88/lldsync/internal/ir"
)

// Field length limits, in characters.
const (
	triggerDescriptionMax = 255
	triggerCommentsMax    = 65535
	graphNameMax          = 128
	triggerTagMax         = 255
)

// checkText validates the encoding and length of a field value and returns
// the problem code and message, or "" when the value is valid.
func checkText(kind ir.Kind, op, value string, maxLen int) (ProblemCode, string) {
	if !ir.ValidUTF8(value) {
		return ErrCodeInvalidUTF8, fmt.Sprintf("Cannot %s %s: value \"%s\" has invalid UTF-8 sequence.",
			op, kind, ir.DisplayValue(value))
	}
	if ir.CharLen(value) > maxLen {
		return ErrCodeTooLong, fmt.Sprintf("Cannot %s %s: value \"%s\" is too long.",
			op, kind, ir.DisplayValue(value))
	}
	return "", ""
}
