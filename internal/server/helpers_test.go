package server

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/gst-bills/internal/bills"
	"github.com/joseph-ayodele/gst-bills/internal/export"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/ocr"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
	"github.com/joseph-ayodele/gst-bills/internal/reconcile"
	"github.com/joseph-ayodele/gst-bills/internal/repository"
)

const invoiceText = `ABC Traders GSTIN 29ABCDE1234F1Z5
Invoice No: 771 Date: 05/03/2024
Sub Total: 10,000.00
CGST @ 9%: 900.00
SGST @ 9%: 900.00
Grand Total: 11,800.00`

const invoiceReply = `{"supplierName":"ABC Traders","gstin":"29ABCDE1234F1Z5","invoiceNumber":"771","invoiceDate":"2024-03-05","amount":10000,"taxBreakdown":{"cgst":900,"sgst":900,"igst":null},"expenseType":"Office Supplies","extractionConfidence":"high"}`

type stubGenerator struct{ reply string }

func (g stubGenerator) Generate(context.Context, llm.Request) (string, error) { return g.reply, nil }

type stubRecognizer struct{ text string }

func (r stubRecognizer) Recognize(context.Context, []byte) (ocr.Text, error) {
	return ocr.Text{Text: r.text, Confidence: 0.9}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBills(t *testing.T) *bills.Service {
	t.Helper()
	logger := quietLogger()
	db, err := repository.OpenInMemory(context.Background(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(db.Close)

	repo := repository.NewBillRepository(db, logger)
	return bills.NewService(newTestProcessor(), repo, export.NewService(repo, logger), logger)
}

func newTestProcessor() *pipeline.Processor {
	return pipeline.NewProcessor(quietLogger(), pipeline.Config{},
		stubRecognizer{text: invoiceText}, nil,
		stubGenerator{reply: invoiceReply}, reconcile.Engine{})
}
