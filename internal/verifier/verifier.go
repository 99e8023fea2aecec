package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"md5watch/internal/hashcodec"
	"md5watch/internal/logging"
	"md5watch/internal/notifications"
	"md5watch/internal/relocate"
	"md5watch/internal/report"
	"md5watch/internal/watch"
)

// Recorder persists results.
type Recorder interface {
	Record(ctx context.Context, res report.Result) (int64, error)
}

// Publisher fans results out to live subscribers.
type Publisher interface {
	Publish(res report.Result) report.Result
}

// Deps are the collaborators a Verifier drives. Recorder, Publisher and
// Notifier are optional.
type Deps struct {
	Relocator *relocate.Relocator
	Hasher    *hashcodec.Hasher
	Reporter  *report.Reporter
	Recorder  Recorder
	Publisher Publisher
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Options controls retention and diagnostics.
type Options struct {
	KeepProcessed bool
	Verbose       bool
	RunID         string
}

// Stats counts outcomes since start.
type Stats struct {
	Processed int64 `json:"processed"`
	Good      int64 `json:"good"`
	Bad       int64 `json:"bad"`
	Invalid   int64 `json:"invalid"`
	NotFound  int64 `json:"not_found"`
	Failed    int64 `json:"failed"`
}

// Verifier runs the per-file pipeline.
type Verifier struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	processed atomic.Int64
	good      atomic.Int64
	bad       atomic.Int64
	invalid   atomic.Int64
	notFound  atomic.Int64
	failed    atomic.Int64
}

// New constructs a Verifier.
func New(deps Deps, opts Options) *Verifier {
	if deps.Hasher == nil {
		deps.Hasher = hashcodec.NewHasher(hashcodec.DefaultChunkSize)
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	return &Verifier{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(deps.Logger, "verifier"),
		now:    time.Now,
	}
}

// Handle is the dispatcher entry point; the result is already reported.
func (v *Verifier) Handle(ctx context.Context, ev watch.ArrivalEvent) {
	_, _ = v.Process(ctx, ev)
}

// Process relocates, classifies and reports one arrival. INVALID and BAD are
// results, not errors. Errors mean no classification line was printed: the
// file vanished (relocate.ErrNotFound), the holding directory already had the
// name under the reject policy (relocate.ErrCollision), or I/O failed.
func (v *Verifier) Process(ctx context.Context, ev watch.ArrivalEvent) (report.Result, error) {
	started := v.now()
	logger := v.logger.With(
		logging.String(logging.FieldFile, ev.Name),
		logging.Int(logging.FieldSourceTag, ev.SourceTag),
	)

	rel, err := v.deps.Relocator.Relocate(ev.Name)
	if err != nil {
		v.relocationFailed(ctx, logger, ev, err)
		return report.Result{}, err
	}
	logger = logger.With(logging.Int(logging.FieldSourceTag, rel.SourceTag))
	if v.opts.Verbose {
		logger.Info("file relocated",
			logging.String("from", rel.SourcePath),
			logging.String("to", rel.HoldingPath),
			logging.Bool("cross_device", rel.CrossDevice),
			logging.Bool("renamed", rel.Renamed),
		)
	}
	if rel.SourceTag != ev.SourceTag && ev.SourceTag != 0 {
		logger.Debug("file taken from a different directory than the event reported",
			logging.Int("event_tag", ev.SourceTag),
			logging.String(logging.FieldEventType, "source_tie_break"),
		)
	}

	res := report.Result{
		Name:        rel.OriginalName,
		SourceTag:   rel.SourceTag,
		HoldingPath: rel.HoldingPath,
		RunID:       v.opts.RunID,
	}
	if info, statErr := os.Stat(rel.HoldingPath); statErr == nil {
		res.Size = info.Size()
	}

	if err := v.classify(ctx, &res); err != nil {
		v.failed.Add(1)
		logging.ErrorWithContext(logger, "hash computation failed; no classification", "hash_failed",
			logging.String("path", rel.HoldingPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the holding directory filesystem"),
			logging.String(logging.FieldImpact, "file was not classified; holding copy kept for inspection"),
		)
		res.Retained = true
		return res, err
	}

	res.At = v.now()
	res.Duration = res.At.Sub(started)
	if err := v.deps.Reporter.Report(res); err != nil {
		logging.ErrorWithContext(logger, "classification line not written", "report_failed", logging.Error(err))
	}
	v.count(res.Classification)
	v.applyRetention(logger, &res)

	if v.deps.Recorder != nil {
		if _, err := v.deps.Recorder.Record(ctx, res); err != nil {
			logging.WarnWithContext(logger, "ledger record failed", "ledger_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "result missing from history"),
				logging.String(logging.FieldErrorHint, "check state_dir free space and permissions"),
			)
		}
	}
	if v.deps.Publisher != nil {
		res = v.deps.Publisher.Publish(res)
	}
	if err := v.deps.Notifier.NotifyClassification(ctx, res); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push alert for this file"),
			logging.String(logging.FieldErrorHint, "check ntfy_topic"),
		)
	}
	logger.Debug("file classified",
		logging.String(logging.FieldClassification, string(res.Classification)),
		logging.Duration("duration", res.Duration),
		logging.Int64("size", res.Size),
	)
	return res, nil
}

// Check classifies a file in place without relocation, retention or
// recording.
func (v *Verifier) Check(ctx context.Context, path string) (report.Result, error) {
	res := report.Result{Name: filepath.Base(path), HoldingPath: path}
	info, err := os.Stat(path)
	if err != nil {
		return res, err
	}
	if !info.Mode().IsRegular() {
		return res, fmt.Errorf("%s: not a regular file", path)
	}
	res.Size = info.Size()
	started := v.now()
	if err := v.classify(ctx, &res); err != nil {
		return res, err
	}
	res.At = v.now()
	res.Duration = res.At.Sub(started)
	res.Retained = true
	return res, nil
}

// Stats returns outcome counters.
func (v *Verifier) Stats() Stats {
	return Stats{
		Processed: v.processed.Load(),
		Good:      v.good.Load(),
		Bad:       v.bad.Load(),
		Invalid:   v.invalid.Load(),
		NotFound:  v.notFound.Load(),
		Failed:    v.failed.Load(),
	}
}

func (v *Verifier) classify(ctx context.Context, res *report.Result) error {
	token, ok := hashcodec.ExtractToken(res.Name)
	if !ok {
		res.Classification = report.Invalid
		return nil
	}
	res.Expected = token.Normalized()
	actual, err := v.deps.Hasher.ComputeHash(ctx, res.HoldingPath)
	if err != nil {
		return err
	}
	res.Actual = actual
	if token.Matches(actual) {
		res.Classification = report.Good
	} else {
		res.Classification = report.Bad
	}
	return nil
}

func (v *Verifier) applyRetention(logger *slog.Logger, res *report.Result) {
	if v.opts.KeepProcessed {
		res.Retained = true
		return
	}
	if err := os.Remove(res.HoldingPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		res.Retained = true
		logging.WarnWithContext(logger, "holding copy not deleted", "retention_delete_failed",
			logging.String("path", res.HoldingPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file remains in the holding directory"),
			logging.String(logging.FieldErrorHint, "check holding directory permissions"),
		)
	}
}

func (v *Verifier) relocationFailed(ctx context.Context, logger *slog.Logger, ev watch.ArrivalEvent, err error) {
	switch {
	case errors.Is(err, relocate.ErrNotFound):
		v.notFound.Add(1)
		attrs := logging.Args(logging.String(logging.FieldEventType, "file_vanished"), logging.Error(err))
		if v.opts.Verbose {
			logger.Info("file vanished before relocation; event dropped", attrs...)
		} else {
			logger.Debug("file vanished before relocation; event dropped", attrs...)
		}
	case errors.Is(err, relocate.ErrCollision):
		v.failed.Add(1)
		logging.WarnWithContext(logger, "holding directory already contains file; event dropped", "holding_collision",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file left in the watched directory unclassified"),
			logging.String(logging.FieldErrorHint, "clear the holding directory or set on_collision = \"rename\""),
		)
	default:
		v.failed.Add(1)
		logging.ErrorWithContext(logger, "relocation failed; event dropped", "relocation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the watched and holding directories"),
		)
		if notifyErr := v.deps.Notifier.NotifyRelocationFailed(ctx, ev.Name, err); notifyErr != nil {
			logger.Debug("relocation notification failed", logging.Error(notifyErr))
		}
	}
}

func (v *Verifier) count(c report.Classification) {
	v.processed.Add(1)
	switch c {
	case report.Good:
		v.good.Add(1)
	case report.Bad:
		v.bad.Add(1)
	case report.Invalid:
		v.invalid.Add(1)
	}
}

type noopNotifier struct{}

func (noopNotifier) NotifyClassification(context.Context, report.Result) error   { return nil }
func (noopNotifier) NotifyRelocationFailed(context.Context, string, error) error { return nil }
func (noopNotifier) TestNotification(context.Context) error                      { return nil }
