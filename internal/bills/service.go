// Package bills is the application façade used by the transports: it runs
// extractions, applies manual edits, and stores, lists and exports confirmed bills.
package bills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/entity"
	"github.com/joseph-ayodele/gst-bills/internal/export"
	"github.com/joseph-ayodele/gst-bills/internal/gst"
	"github.com/joseph-ayodele/gst-bills/internal/money"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
	"github.com/joseph-ayodele/gst-bills/internal/repository"
)

// ErrInvalidEdit is returned when a manual edit cannot be parsed.
var ErrInvalidEdit = errors.New("invalid edit")

type Service struct {
	proc   *pipeline.Processor
	repo   repository.BillRepository
	export *export.Service
	logger *slog.Logger
}

func NewService(proc *pipeline.Processor, repo repository.BillRepository, exp *export.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{proc: proc, repo: repo, export: exp, logger: logger}
}

// ExtractImage runs recognition and reconciliation over an uploaded photo or camera capture.
func (s *Service) ExtractImage(ctx context.Context, image []byte, source constants.SourceKind) (*pipeline.Extraction, error) {
	return s.proc.ProcessImage(ctx, image, source, s.progress(ctx, source))
}

// ExtractText reconciles text recognised elsewhere.
func (s *Service) ExtractText(ctx context.Context, text string, source constants.SourceKind) (*pipeline.Extraction, error) {
	return s.proc.ProcessText(ctx, text, source, s.progress(ctx, source))
}

// ExtractVoice reconciles a speech-to-text transcript.
func (s *Service) ExtractVoice(ctx context.Context, transcript string) (*pipeline.Extraction, error) {
	return s.proc.ProcessVoice(ctx, transcript, s.progress(ctx, constants.SourceVoice))
}

func (s *Service) progress(ctx context.Context, source constants.SourceKind) pipeline.ProgressFunc {
	rid := common.RequestIDFromContext(ctx)
	return func(p int) {
		s.logger.Debug("bills.extract.progress", "req_id", rid, "source", source, "percent", p)
	}
}

// EditRate applies a typed tax rate such as "18", "18%" or "5+18".
func (s *Service) EditRate(rec entity.InvoiceRecord, input string) (entity.InvoiceRecord, error) {
	out, ok := gst.EditRate(rec, input)
	if !ok {
		return rec, fmt.Errorf("%w: rate %q", ErrInvalidEdit, input)
	}
	return out, nil
}

// EditAmount applies a typed taxable amount such as "1,250.50".
func (s *Service) EditAmount(rec entity.InvoiceRecord, input string) (entity.InvoiceRecord, error) {
	v, ok := money.Parse(input)
	if !ok || v < 0 {
		return rec, fmt.Errorf("%w: amount %q", ErrInvalidEdit, input)
	}
	return gst.EditAmount(rec, v), nil
}

// Confirm validates a reviewed record and stores it as a bill.
func (s *Service) Confirm(ctx context.Context, rec entity.InvoiceRecord, source constants.SourceKind) (*entity.Bill, error) {
	if err := common.ValidateRecord(rec); err != nil {
		s.logger.Warn("bills.confirm.invalid", "supplier", rec.SupplierName, "error", err)
		return nil, err
	}
	if source == "" {
		source = constants.SourceImage
	}
	b, err := s.repo.Create(ctx, &entity.Bill{Source: source, InvoiceRecord: rec})
	if err != nil {
		return nil, err
	}
	s.logger.Info("bills.confirm.ok", "bill_id", b.ID, "total", b.TotalAmount)
	return b, nil
}

func (s *Service) List(ctx context.Context, from, to *time.Time) ([]*entity.Bill, error) {
	return s.repo.List(ctx, from, to)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Bill, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Export renders the purchase register for an invoice-date window.
func (s *Service) Export(ctx context.Context, from, to *time.Time) ([]byte, error) {
	return s.export.ExportBillsXLSX(ctx, from, to)
}
