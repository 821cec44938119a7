package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/gst-bills/constants"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/ocr"
	"github.com/joseph-ayodele/gst-bills/internal/reconcile"
)

const invoiceText = `ABC Traders GSTIN 29ABCDE1234F1Z5
Sub Total: 10,000.00
CGST @ 9%: 900.00
SGST @ 9%: 900.00
Grand Total: 11,800.00`

type fakeRecognizer struct {
	mu    sync.Mutex
	texts map[string]string // keyed by image bytes
	calls int
	err   error
}

func (f *fakeRecognizer) Recognize(_ context.Context, image []byte) (ocr.Text, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return ocr.Text{}, f.err
	}
	return ocr.Text{Text: f.texts[string(image)], Confidence: 0.8}, nil
}

type fakeEnhancer struct{ calls int }

func (f *fakeEnhancer) Enhance(image []byte) ([]byte, error) {
	f.calls++
	return append([]byte("enhanced:"), image...), nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []llm.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProcessor(rec ocr.Recognizer, enh ocr.Enhancer, gen llm.Generator) *Processor {
	cfg := Config{Now: func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }}
	return NewProcessor(quietLogger(), cfg, rec, enh, gen, reconcile.Engine{})
}

const goodReply = "```json\n{\"supplierName\":\"ABC Traders\",\"amount\":10000,\"taxBreakdown\":{\"cgst\":900,\"sgst\":900,\"igst\":null},\"extractionConfidence\":\"high\"}\n```"

func TestProcessImage(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"img": invoiceText}}
	gen := &fakeGenerator{reply: goodReply}
	p := newProcessor(rec, &fakeEnhancer{}, gen)

	var milestones []int
	x, err := p.ProcessImage(context.Background(), []byte("img"), constants.SourceImage, func(pct int) {
		milestones = append(milestones, pct)
	})
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if x.Record.TaxAmount != 1800 || x.Record.TotalAmount != 11800 || x.Record.TaxPercent != 18 {
		t.Fatalf("record = %+v", x.Record)
	}
	if x.Hints.Taxable != 10000 || x.Hints.GSTPercent != 18 {
		t.Fatalf("hints = %+v", x.Hints)
	}
	if x.Source != constants.SourceImage || x.OCRConfidence != 0.8 {
		t.Fatalf("source=%q ocr confidence=%v", x.Source, x.OCRConfidence)
	}
	if !slices.IsSorted(milestones) || milestones[0] != ProgressStart || milestones[len(milestones)-1] != ProgressDone {
		t.Fatalf("milestones = %v", milestones)
	}
	if len(gen.reqs) != 1 || !strings.Contains(gen.reqs[0].User, "Grand Total") {
		t.Fatalf("generator requests = %+v", gen.reqs)
	}
}

func TestProcessImageFallbackKeepsLongerText(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{
		"img":          "blur",
		"enhanced:img": invoiceText,
	}}
	enh := &fakeEnhancer{}
	p := newProcessor(rec, enh, &fakeGenerator{reply: goodReply})

	x, err := p.ProcessImage(context.Background(), []byte("img"), constants.SourceCamera, nil)
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if enh.calls != 1 || rec.calls != 2 {
		t.Fatalf("enhance calls = %d, recognize calls = %d", enh.calls, rec.calls)
	}
	if x.RawText != invoiceText {
		t.Fatalf("RawText = %q", x.RawText)
	}
}

func TestProcessImageInsufficientText(t *testing.T) {
	cases := []struct {
		source constants.SourceKind
		text   string
		min    int
	}{
		{constants.SourceCamera, "too short", 10},
		{constants.SourceImage, "fifteen chars!!", 20},
	}
	for _, tc := range cases {
		t.Run(string(tc.source), func(t *testing.T) {
			rec := &fakeRecognizer{texts: map[string]string{"img": tc.text, "enhanced:img": "x"}}
			gen := &fakeGenerator{reply: goodReply}
			p := newProcessor(rec, &fakeEnhancer{}, gen)

			_, err := p.ProcessImage(context.Background(), []byte("img"), tc.source, nil)
			var ite *InsufficientTextError
			if !errors.As(err, &ite) {
				t.Fatalf("error = %v, want *InsufficientTextError", err)
			}
			if ite.Min != tc.min || ite.Length != len(tc.text) {
				t.Fatalf("InsufficientTextError = %+v", ite)
			}
			if len(gen.reqs) != 0 {
				t.Fatal("generator called for insufficient text")
			}
		})
	}
}

func TestProcessImageCameraThreshold(t *testing.T) {
	rec := &fakeRecognizer{texts: map[string]string{"img": "CGST 90 ok"}}
	enh := &fakeEnhancer{}
	p := newProcessor(rec, enh, &fakeGenerator{reply: `{"amount": 1000}`})

	if _, err := p.ProcessImage(context.Background(), []byte("img"), constants.SourceCamera, nil); err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if enh.calls != 0 {
		t.Fatal("camera capture of 10 characters should not trigger the fallback")
	}
}

func TestProcessErrorsAbort(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		gen := &fakeGenerator{err: &llm.ServiceError{Status: 500, Body: "upstream"}}
		p := newProcessor(&fakeRecognizer{}, nil, gen)
		x, err := p.ProcessText(context.Background(), invoiceText, constants.SourceImage, nil)
		var se *llm.ServiceError
		if !errors.As(err, &se) || se.Status != 500 || x != nil {
			t.Fatalf("x=%v err=%v, want *llm.ServiceError", x, err)
		}
	})
	t.Run("parse error", func(t *testing.T) {
		p := newProcessor(&fakeRecognizer{}, nil, &fakeGenerator{reply: "sorry, I cannot help"})
		x, err := p.ProcessText(context.Background(), invoiceText, constants.SourceImage, nil)
		var pe *llm.ParseError
		if !errors.As(err, &pe) || x != nil {
			t.Fatalf("x=%v err=%v, want *llm.ParseError", x, err)
		}
	})
	t.Run("ocr error", func(t *testing.T) {
		p := newProcessor(&fakeRecognizer{err: errors.New("tesseract missing")}, nil, &fakeGenerator{reply: goodReply})
		if _, err := p.ProcessImage(context.Background(), []byte("img"), constants.SourceImage, nil); err == nil {
			t.Fatal("expected OCR error")
		}
	})
	t.Run("voice source for image", func(t *testing.T) {
		p := newProcessor(&fakeRecognizer{}, nil, &fakeGenerator{reply: goodReply})
		_, err := p.ProcessImage(context.Background(), []byte("img"), constants.SourceVoice, nil)
		if !errors.Is(err, ErrInvalidSource) {
			t.Fatalf("error = %v, want ErrInvalidSource", err)
		}
	})
}

func TestProcessVoice(t *testing.T) {
	gen := &fakeGenerator{reply: `{"supplierName":"Sharma Furniture","amount":1000000,"taxPercent":18,"invoiceDate":"2024-03-05"}`}
	p := newProcessor(nil, nil, gen)

	x, err := p.ProcessVoice(context.Background(), "chairs for 10 lakh from Sharma Furniture today", nil)
	if err != nil {
		t.Fatalf("ProcessVoice() error = %v", err)
	}
	if x.Record.TotalAmount != 1180000 || x.Source != constants.SourceVoice {
		t.Fatalf("extraction = %+v", x)
	}
	if !strings.Contains(gen.reqs[0].System, "2024-03-05") {
		t.Fatal("voice prompt does not carry today's date")
	}

	_, err = p.ProcessVoice(context.Background(), "   ", nil)
	var ite *InsufficientTextError
	if !errors.As(err, &ite) {
		t.Fatalf("error = %v, want *InsufficientTextError", err)
	}
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, _ llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestParseStageTimeout(t *testing.T) {
	cfg := Config{LLMTimeout: 20 * time.Millisecond}
	p := NewProcessor(quietLogger(), cfg, nil, nil, slowGenerator{}, reconcile.Engine{})
	_, err := p.ProcessText(context.Background(), invoiceText, constants.SourceImage, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

type countingGenerator struct {
	inFlight, peak atomic.Int32
}

func (g *countingGenerator) Generate(ctx context.Context, _ llm.Request) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return `{"amount": 1000, "taxPercent": 5}`, nil
}

func TestBatch(t *testing.T) {
	gen := &countingGenerator{}
	rec := &fakeRecognizer{texts: map[string]string{"a": invoiceText, "b": "?"}}
	p := newProcessor(rec, nil, gen)

	items := []BatchItem{
		{Name: "a.jpg", Image: []byte("a"), Source: constants.SourceImage},
		{Name: "b.jpg", Image: []byte("b"), Source: constants.SourceImage},
		{Name: "typed", Text: invoiceText, Source: constants.SourceImage},
		{Name: "spoken", Text: "rent 1000 at 5 percent", Source: constants.SourceVoice},
	}
	results := p.Batch(context.Background(), items, 2)

	if len(results) != len(items) {
		t.Fatalf("results = %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r.Name != items[i].Name {
			t.Fatalf("result %d name = %q, want %q", i, r.Name, items[i].Name)
		}
	}
	var ite *InsufficientTextError
	if !errors.As(results[1].Err, &ite) {
		t.Fatalf("b.jpg error = %v, want *InsufficientTextError", results[1].Err)
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Err != nil || results[i].Extraction.Record.TotalAmount != 1050 {
			t.Fatalf("%s: err=%v extraction=%+v", results[i].Name, results[i].Err, results[i].Extraction)
		}
	}
	if peak := gen.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}
