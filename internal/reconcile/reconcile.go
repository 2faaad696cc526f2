// Package reconcile brings a local asset tree in line with the manifest,
// one entry at a time.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ProhorTaim/Egregoria/internal/domain"
	"github.com/ProhorTaim/Egregoria/internal/lfs"
	"github.com/ProhorTaim/Egregoria/internal/storage"
	"github.com/ProhorTaim/Egregoria/pkg/logger"
)

// Observer is told about each fetch as it happens so a console can render
// progress. Both calls come from the reconciling goroutine.
type Observer interface {
	// Fetching is called before a download with the state that caused it.
	Fetching(path domain.AssetPath, prior domain.LocalFileState)
	// Finished is called once per entry with its final result.
	Finished(result domain.Result)
}

type nopObserver struct{}

func (nopObserver) Fetching(domain.AssetPath, domain.LocalFileState) {}
func (nopObserver) Finished(domain.Result)                           {}

// Reconciler fetches missing and placeholder assets into BaseDir.
type Reconciler struct {
	source   storage.Source
	baseDir  string
	observer Observer
	log      zerolog.Logger
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithObserver attaches a progress observer.
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger overrides the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.log = l
	}
}

// New creates a Reconciler writing under baseDir.
func New(source storage.Source, baseDir string, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:   source,
		baseDir:  baseDir,
		observer: nopObserver{},
		log:      logger.Log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile produces exactly one outcome for p. Errors never escape; they are
// carried on the result.
func (r *Reconciler) Reconcile(ctx context.Context, p domain.AssetPath) domain.Result {
	local := p.LocalPath(r.baseDir)
	res := domain.Result{Path: p}

	state, err := lfs.Inspect(local)
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Err = err
		return res
	}
	res.Prior = state

	if !state.NeedsFetch() {
		res.Outcome = domain.OutcomeSkipped
		return res
	}

	r.observer.Fetching(p, state)

	n, err := storage.Download(ctx, r.source, p.String(), local)
	res.BytesWritten = n
	if err != nil {
		res.Outcome = domain.OutcomeFailed
		res.Err = err
		return res
	}

	// the remote may itself hand back a pointer when LFS is not resolved
	// server-side; the file stays on disk either way
	if lfs.IsPlaceholder(local) {
		res.Outcome = domain.OutcomeFailed
		res.Err = &domain.PlaceholderPersistsError{Path: p}
		return res
	}

	res.Outcome = domain.OutcomeOk
	return res
}

// Run reconciles every entry in order and returns the tally.
func (r *Reconciler) Run(ctx context.Context, entries []domain.AssetPath) domain.RunSummary {
	runLog := r.log.With().Str("run_id", uuid.NewString()).Logger()
	runLog.Info().
		Str("dir", r.baseDir).
		Str("source", r.source.Describe()).
		Int("entries", len(entries)).
		Msg("reconcile started")

	start := time.Now()
	var summary domain.RunSummary
	for _, p := range entries {
		res := r.Reconcile(ctx, p)
		summary.Record(res)
		r.observer.Finished(res)

		switch res.Outcome {
		case domain.OutcomeFailed:
			runLog.Warn().Err(res.Err).Str("path", p.String()).Msg("asset failed")
		case domain.OutcomeOk:
			runLog.Debug().
				Str("path", p.String()).
				Str("prior", res.Prior.String()).
				Int64("bytes", res.BytesWritten).
				Msg("asset fetched")
		default:
			runLog.Trace().Str("path", p.String()).Msg("asset present")
		}
	}

	runLog.Info().
		Int("ok", summary.Ok).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("reconcile finished")
	return summary
}

// PlanItem is the local classification of one entry, without any fetch.
type PlanItem struct {
	Path  domain.AssetPath
	State domain.LocalFileState
	Err   error
}

// Plan classifies every entry without touching the network.
func (r *Reconciler) Plan(entries []domain.AssetPath) []PlanItem {
	items := make([]PlanItem, 0, len(entries))
	for _, p := range entries {
		state, err := lfs.Inspect(p.LocalPath(r.baseDir))
		items = append(items, PlanItem{Path: p, State: state, Err: err})
	}
	return items
}
