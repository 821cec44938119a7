package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/gst-bills/constants"
)

// BatchItem is one invoice in a batch. Image wins over Text when both are set.
type BatchItem struct {
	Name   string
	Image  []byte
	Text   string
	Source constants.SourceKind
}

// BatchResult pairs an item with its outcome.
type BatchResult struct {
	Name       string
	Extraction *Extraction
	Err        error
}

// Batch processes different invoices concurrently, at most limit at a time.
// A failing item does not stop the others; results keep the input order.
func (p *Processor) Batch(ctx context.Context, items []BatchItem, limit int) []BatchResult {
	results := make([]BatchResult, len(items))
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, it := range items {
		g.Go(func() error {
			results[i].Name = it.Name
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			var x *Extraction
			var err error
			switch {
			case len(it.Image) > 0:
				x, err = p.ProcessImage(ctx, it.Image, it.Source, nil)
			case it.Source == constants.SourceVoice:
				x, err = p.ProcessVoice(ctx, it.Text, nil)
			default:
				x, err = p.ProcessText(ctx, it.Text, it.Source, nil)
			}
			results[i].Extraction, results[i].Err = x, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
