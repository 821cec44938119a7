package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
)

// Bills is what both transports need from the application. *bills.Service implements it.
type Bills interface {
	ExtractImage(ctx context.Context, image []byte, source constants.SourceKind) (*pipeline.Extraction, error)
	ExtractText(ctx context.Context, text string, source constants.SourceKind) (*pipeline.Extraction, error)
	ExtractVoice(ctx context.Context, transcript string) (*pipeline.Extraction, error)
	EditRate(rec entity.InvoiceRecord, input string) (entity.InvoiceRecord, error)
	EditAmount(rec entity.InvoiceRecord, input string) (entity.InvoiceRecord, error)
	Confirm(ctx context.Context, rec entity.InvoiceRecord, source constants.SourceKind) (*entity.Bill, error)
	List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// parseDate reads an optional YYYY-MM-DD bound.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseSource defaults an empty source to image.
func parseSource(s string) (constants.SourceKind, bool) {
	if s == "" {
		return constants.SourceImage, true
	}
	return constants.ParseSourceKind(s)
}

func exportFilename(from, to *time.Time) string {
	name := "gst-purchase-register"
	if from != nil {
		name += "-" + from.Format(time.DateOnly)
	}
	if to != nil {
		name += "-to-" + to.Format(time.DateOnly)
	}
	return name + ".xlsx"
}
