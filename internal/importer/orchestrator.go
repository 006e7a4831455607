package importer

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/blob"
	"github.com/wordhaven/vocab-cli/internal/config"
	"github.com/wordhaven/vocab-cli/internal/enrich"
	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/parser"
	"github.com/wordhaven/vocab-cli/internal/store"
)

// Orchestrator drives one import job through its stages, persisting status
// and progress before each stage runs so a poller always sees where the job
// is. Report entries are appended as each stage produces them.
type Orchestrator struct {
	store store.Store
	blob  *blob.Storage
	cfg   *config.Config

	// chainFn builds the provider chain; swapped out in tests.
	chainFn func(ctx context.Context) []enrich.Enricher
}

func New(st store.Store, bs *blob.Storage, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store: st,
		blob:  bs,
		cfg:   cfg,
		chainFn: func(ctx context.Context) []enrich.Enricher {
			return enrich.BuildChain(ctx, cfg)
		},
	}
}

// Run executes the job end to end. The staged upload is removed when the run
// finishes no matter how it finishes. Errors that belong to a stage are
// written into the job report and flip the job to failed without surfacing
// here; only faults outside any stage's handling come back as an error, after
// the job has already been marked failed with a system report entry.
func (o *Orchestrator) Run(ctx context.Context, jobID string) (err error) {
	log := zap.L().With(zap.String("job_id", jobID))

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return eris.Wrap(err, "importer: load job")
	}
	if job.Status != model.JobStatusPending {
		return eris.Errorf("importer: job %s is %s, not pending", jobID, job.Status)
	}

	defer o.blob.Purge(job.ID)
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("importer: job panicked: %v", r)
		}
		if err != nil {
			o.failWithSystemError(job, err)
		}
	}()

	counters := job.Counters
	progress := job.Progress

	// Parse.
	if err := o.transition(ctx, job.ID, model.JobStatusParsing, &counters, &progress); err != nil {
		return err
	}
	parsed, perr := parser.Parse(job.FolderID, job.Metadata.FilePath)
	if perr != nil {
		log.Warn("import parse failed", zap.Error(perr))
		return o.fail(ctx, job.ID, &counters, &progress, []model.ImportError{{
			Stage:   model.StageParse,
			Message: perr.Error(),
		}}, nil)
	}

	counters.TotalLines = parsed.TotalLines
	counters.Parsed = len(parsed.Records)
	counters.Duplicates = len(parsed.Duplicates)
	counters.Failed = len(parsed.Errors)
	progress.Total = len(parsed.Records)

	var dupSkips []model.SkippedWord
	for _, d := range parsed.Duplicates {
		dupSkips = append(dupSkips, model.SkippedWord{
			Word:   d.Word,
			Reason: fmt.Sprintf("%s (line %d)", skipDuplicate, d.Line),
		})
	}
	if len(parsed.Errors) > 0 || len(dupSkips) > 0 {
		if err := o.store.AppendJobReport(ctx, job.ID, parsed.Errors, dupSkips, nil); err != nil {
			return eris.Wrap(err, "importer: append parse report")
		}
	}

	if len(parsed.Records) == 0 {
		log.Warn("import produced no records", zap.Int("total_lines", parsed.TotalLines))
		// The per-line errors already say why nothing parsed; add the
		// generic entry only when there are none, e.g. an empty file.
		var errs []model.ImportError
		if len(parsed.Errors) == 0 {
			errs = []model.ImportError{{
				Stage:   model.StageParse,
				Message: "no valid records in file",
			}}
		}
		return o.fail(ctx, job.ID, &counters, &progress, errs, nil)
	}

	// Enrich.
	chain := o.chainFn(ctx)
	if len(chain) > 0 {
		provider := chain[0].Name()
		job.Metadata.Provider = provider
		if err := o.updateJob(ctx, job.ID, store.JobUpdate{Provider: &provider}); err != nil {
			return err
		}
	}
	if err := o.transition(ctx, job.ID, model.JobStatusEnriching, &counters, &progress); err != nil {
		return err
	}

	engine := enrich.NewEngine(chain, o.cfg.Import.BatchSize, o.cfg.Import.RetryLimit)
	eres := engine.Run(ctx, parsed.Records, enrich.NewCache(), func(processed int) {
		progress.Processed = processed
		if uerr := o.updateJob(ctx, job.ID, store.JobUpdate{Progress: &progress}); uerr != nil {
			log.Warn("import progress not persisted", zap.Error(uerr))
		}
	})
	counters.Enriched = eres.EnrichedCount
	if len(eres.Errors) > 0 {
		if err := o.store.AppendJobReport(ctx, job.ID, eres.Errors, nil, nil); err != nil {
			return eris.Wrap(err, "importer: append enrich report")
		}
	}

	// Save.
	progress.Processed = len(parsed.Records)
	if err := o.transition(ctx, job.ID, model.JobStatusSaving, &counters, &progress); err != nil {
		return err
	}

	sres := saveRecords(ctx, o.store, job, parsed.Records)
	counters.Failed += len(sres.Errors)
	if len(sres.Errors) > 0 || len(sres.Skipped) > 0 || len(sres.WordIDs) > 0 {
		if err := o.store.AppendJobReport(ctx, job.ID, sres.Errors, sres.Skipped, sres.WordIDs); err != nil {
			return eris.Wrap(err, "importer: append save report")
		}
	}

	if sres.Saved == 0 {
		log.Warn("import saved nothing",
			zap.Int("parsed", counters.Parsed),
			zap.Int("skipped", len(sres.Skipped)),
		)
		return o.fail(ctx, job.ID, &counters, &progress, nil, nil)
	}

	if err := o.transition(ctx, job.ID, model.JobStatusDone, &counters, &progress); err != nil {
		return err
	}
	log.Info("import done",
		zap.Int("parsed", counters.Parsed),
		zap.Int("enriched", counters.Enriched),
		zap.Int("saved", sres.Saved),
		zap.Int("duplicates", counters.Duplicates),
	)
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, jobID string, status model.JobStatus, counters *model.JobCounters, progress *model.JobProgress) error {
	progress.CurrentStage = status
	err := o.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Status:   &status,
		Counters: counters,
		Progress: progress,
	})
	if err != nil {
		return eris.Wrapf(err, "importer: move job to %s", status)
	}
	return nil
}

func (o *Orchestrator) updateJob(ctx context.Context, jobID string, upd store.JobUpdate) error {
	if err := o.store.UpdateJob(ctx, jobID, upd); err != nil {
		return eris.Wrap(err, "importer: update job")
	}
	return nil
}

// fail marks the job failed, appending any stage errors first.
func (o *Orchestrator) fail(ctx context.Context, jobID string, counters *model.JobCounters, progress *model.JobProgress, errs []model.ImportError, skipped []model.SkippedWord) error {
	if len(errs) > 0 || len(skipped) > 0 {
		if err := o.store.AppendJobReport(ctx, jobID, errs, skipped, nil); err != nil {
			return eris.Wrap(err, "importer: append failure report")
		}
	}
	return o.transition(ctx, jobID, model.JobStatusFailed, counters, progress)
}

// failWithSystemError is the last-ditch handler for faults outside any
// stage. It uses a fresh context so a cancelled run can still record why it
// stopped.
func (o *Orchestrator) failWithSystemError(job *model.Job, cause error) {
	ctx := context.Background()
	entry := []model.ImportError{{Stage: model.StageSystem, Message: cause.Error()}}
	if err := o.store.AppendJobReport(ctx, job.ID, entry, nil, nil); err != nil {
		zap.L().Error("importer: system error not recorded", zap.String("job_id", job.ID), zap.Error(err))
	}
	status := model.JobStatusFailed
	if err := o.store.UpdateJob(ctx, job.ID, store.JobUpdate{Status: &status}); err != nil {
		zap.L().Error("importer: job not marked failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}
