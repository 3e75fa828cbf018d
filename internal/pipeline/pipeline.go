package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// Importer runs the statement import pipeline: archive, text extraction,
// run audit, model extraction and deduplicating persistence.
type Importer struct {
	archiver  Archiver
	extractor TransactionExtractor
	persister *Persister
	recorder  store.RunRecorder
	log       zerolog.Logger
}

// NewImporter wires an importer. archiver and recorder may be nil.
func NewImporter(archiver Archiver, extractor TransactionExtractor, persister *Persister, recorder store.RunRecorder, log zerolog.Logger) *Importer {
	if recorder == nil {
		recorder = store.NopRunRecorder{}
	}
	return &Importer{
		archiver:  archiver,
		extractor: extractor,
		persister: persister,
		recorder:  recorder,
		log:       log,
	}
}

func (im *Importer) newPipeline() *Pipeline {
	return NewPipeline(
		&ArchiveStep{Archiver: im.archiver, Log: im.log},
		&ExtractTextStep{},
		&StartRunStep{Recorder: im.recorder},
		&ExtractTransactionsStep{Extractor: im.extractor, Recorder: im.recorder},
		&PersistStep{Persister: im.persister, Recorder: im.recorder},
		&MarkSuccessStep{Recorder: im.recorder, Log: im.log},
	)
}

// Import processes one uploaded statement for req.UserID.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	log := im.log.With().Int64("user_id", req.UserID).Str("filename", req.Filename).Logger()
	log.Info().Int("size_bytes", len(req.Content)).Msg("Importing statement")

	state := &PipelineState{Request: req}
	err := im.newPipeline().Execute(ctx, state)

	result := &ImportResult{
		RunID:      state.RunID,
		ArchiveURI: state.ArchiveURI,
		Extracted:  len(state.Records),
		Created:    state.Created,
	}
	if result.Created == nil {
		result.Created = []*domain.Transaction{}
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", state.RunID).Msg("Statement import failed")
		return result, fmt.Errorf("Import: %w", err)
	}

	log.Info().
		Str("run_id", state.RunID).
		Int("extracted", result.Extracted).
		Int("created", len(result.Created)).
		Msg("Statement imported")
	return result, nil
}
