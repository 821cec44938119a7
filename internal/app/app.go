// Package app wires configuration into the database, the extraction pipeline and
// the bills service shared by the commands.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/gst-bills/internal/bills"
	"github.com/joseph-ayodele/gst-bills/internal/common"
	"github.com/joseph-ayodele/gst-bills/internal/export"
	"github.com/joseph-ayodele/gst-bills/internal/llm"
	"github.com/joseph-ayodele/gst-bills/internal/llm/gemini"
	"github.com/joseph-ayodele/gst-bills/internal/llm/openai"
	"github.com/joseph-ayodele/gst-bills/internal/ocr"
	"github.com/joseph-ayodele/gst-bills/internal/pipeline"
	"github.com/joseph-ayodele/gst-bills/internal/reconcile"
	"github.com/joseph-ayodele/gst-bills/internal/repository"
)

// DBResult holds an open database and the function that releases it.
type DBResult struct {
	DB      *repository.DB
	Cleanup func()
}

// InitDatabase opens the configured database, or a private in-memory SQLite one
// when inmem is set, and makes sure the schema exists.
func InitDatabase(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (*DBResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db  *repository.DB
		err error
	)
	if inmem {
		logger.Info("using in-memory database")
		db, err = repository.OpenInMemory(ctx, logger)
	} else {
		db, err = repository.Open(ctx, RepositoryConfig(cfg.Database), logger)
		if err == nil {
			if err = db.Migrate(ctx); err != nil {
				db.Close()
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &DBResult{DB: db, Cleanup: db.Close}, nil
}

// RepositoryConfig maps the environment configuration onto repository.Config.
func RepositoryConfig(c common.DatabaseConfig) repository.Config {
	return repository.Config{
		Driver:           c.Driver,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// NewGenerator builds the configured text-generation client. The returned cleanup
// function is never nil.
func NewGenerator(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, func(), error) {
	switch cfg.Provider {
	case common.ProviderOpenAI, "":
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return c, func() {}, nil
	case common.ProviderGemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
	return nil, nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
}

// NewRecognizer builds the tesseract extractor and, when enabled, the enhancer used
// for the second recognition pass.
func NewRecognizer(cfg common.OCRConfig, logger *slog.Logger) (ocr.Recognizer, ocr.Enhancer) {
	rec := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.Tesseract,
		TesseractLang:       cfg.TesseractLang,
		TessdataDir:         cfg.TessdataDir,
		EnableTSVConfidence: cfg.TSVConfidence,
		PSM:                 cfg.PSM,
		OEM:                 cfg.OEM,
	}, logger)
	if !cfg.Enhance {
		return rec, nil
	}
	return rec, ocr.ContrastEnhancer{}
}

// NewProcessor assembles the extraction pipeline from configuration.
func NewProcessor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*pipeline.Processor, func(), error) {
	gen, cleanup, err := NewGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}
	rec, enh := NewRecognizer(cfg.OCR, logger)
	proc := pipeline.NewProcessor(logger, pipeline.Config{
		OCRTimeout: cfg.Pipeline.OCRTimeout,
		LLMTimeout: cfg.Pipeline.LLMTimeout,
	}, rec, enh, gen, reconcile.Engine{SnapTolerance: cfg.Reconcile.SnapTolerance})
	return proc, cleanup, nil
}

// NewBillsService wires the bills façade over an open database.
func NewBillsService(proc *pipeline.Processor, db *repository.DB, logger *slog.Logger) *bills.Service {
	repo := repository.NewBillRepository(db, logger)
	return bills.NewService(proc, repo, export.NewService(repo, logger), logger)
}
