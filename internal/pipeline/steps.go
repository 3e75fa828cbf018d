package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/carteira/internal/domain"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/rs/zerolog"
)

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request    ImportRequest
	ArchiveURI string
	Text       string
	RunID      string
	Records    []domain.RawTransaction
	Created    []*domain.Transaction
}

// Step 1: ArchiveStep keeps a copy of the upload. Archiving is best effort.
type ArchiveStep struct {
	Archiver Archiver
	Log      zerolog.Logger
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, state.Request.UserID, state.Request.Filename, state.Request.Content)
	if err != nil {
		s.Log.Warn().Err(err).Str("filename", state.Request.Filename).Msg("Could not archive statement")
		return nil
	}
	state.ArchiveURI = uri
	return nil
}

// Step 2: ExtractTextStep converts the upload into plain text.
type ExtractTextStep struct{}

func (s *ExtractTextStep) Execute(ctx context.Context, state *PipelineState) error {
	text, err := extractText(state.Request.Filename, state.Request.Content)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	state.Text = text
	return nil
}

// Step 3: StartRunStep records the import run (status=RUNNING).
type StartRunStep struct {
	Recorder store.RunRecorder
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	subject := state.Request.Filename
	if state.ArchiveURI != "" {
		subject = state.ArchiveURI
	}
	runID, err := s.Recorder.StartRun(ctx, store.RunKindStatementImport, subject, state.Request.UserID)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	state.RunID = runID
	return nil
}

// Step 4: ExtractTransactionsStep asks the model for the statement's transactions.
type ExtractTransactionsStep struct {
	Extractor TransactionExtractor
	Recorder  store.RunRecorder
}

func (s *ExtractTransactionsStep) Execute(ctx context.Context, state *PipelineState) error {
	records, err := s.Extractor.Extract(ctx, state.Text)
	if err != nil {
		s.Recorder.MarkRunFailed(ctx, state.RunID, err)
		return err
	}
	state.Records = records
	return nil
}

// Step 5: PersistStep stores the records that are not already present.
type PersistStep struct {
	Persister *Persister
	Recorder  store.RunRecorder
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	created, err := s.Persister.Persist(ctx, state.Request.UserID, state.Records)
	state.Created = created
	if err != nil {
		s.Recorder.MarkRunFailed(ctx, state.RunID, err)
		return err
	}
	return nil
}

// Step 6: MarkSuccessStep marks the run as SUCCESS. The transactions are
// already stored, so an audit failure is only logged.
type MarkSuccessStep struct {
	Recorder store.RunRecorder
	Log      zerolog.Logger
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	err := s.Recorder.MarkRunSucceeded(ctx, state.RunID, store.RunStats{
		ItemsTotal:   len(state.Records),
		ItemsCreated: len(state.Created),
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("run_id", state.RunID).Msg("Could not record import run success")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
