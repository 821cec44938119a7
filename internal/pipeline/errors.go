package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/gst-bills/constants"
)

// ErrInvalidSource is returned when an operation is called with a source kind it cannot handle.
var ErrInvalidSource = errors.New("invalid source kind")

// InsufficientTextError means recognition produced too little text to be worth sending
// to the text-generation service. The user has to retry with a clearer capture.
type InsufficientTextError struct {
	Source constants.SourceKind
	Length int
	Min    int
}

func (e *InsufficientTextError) Error() string {
	return fmt.Sprintf("insufficient text from %s capture: got %d characters, need at least %d", e.Source, e.Length, e.Min)
}
