package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/editcore/internal/session"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
)

// Runner errors.
var (
	ErrExpectation       = errors.New("unexpected document text")
	ErrUnknownCheckpoint = errors.New("checkpoint name not defined")
)

// StepReport describes the outcome of one step.
type StepReport struct {
	Index       int                       `json:"index"`
	Op          string                    `json:"op"`
	Skipped     bool                      `json:"skipped,omitempty"`
	Changes     int                       `json:"changes,omitempty"`
	Splice      *markerindex.SpliceResult `json:"splice,omitempty"`
	Invalidated markerindex.Set           `json:"invalidated"`
}

// Report is the outcome of a replay.
type Report struct {
	Name    string           `json:"name,omitempty"`
	Steps   []StepReport     `json:"steps"`
	Session *session.Session `json:"-"`
}

// Runner replays scripts.
type Runner struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	sessionOpts []session.Option
}

// NewRunner returns a runner that opens sessions with opts. Either logger or
// tracer may be nil.
func NewRunner(logger *slog.Logger, tracer trace.Tracer, opts ...session.Option) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("editcore")
	}

	return &Runner{logger: logger, tracer: tracer, sessionOpts: opts}
}

// Run replays s in a fresh session. Undo and redo with nothing to replay are
// reported as skipped; any other failure stops the replay.
func (r *Runner) Run(ctx context.Context, s *Script) (*Report, error) {
	ctx, span := r.tracer.Start(ctx, "editcore.script.replay", trace.WithAttributes(
		attribute.String("script.name", s.Name),
		attribute.Int("script.steps", len(s.Steps)),
	))
	defer span.End()

	sess := session.New(s.Text, r.sessionOpts...)
	report := &Report{Name: s.Name, Session: sess}

	for _, def := range s.Markers {
		err := addMarker(ctx, sess, def)
		if err != nil {
			return report, r.fail(span, err)
		}
	}

	checkpoints := make(map[string]uint32)

	for i, step := range s.Steps {
		stepReport, err := r.runStep(ctx, sess, checkpoints, step)
		if err == nil && step.Expect != nil && sess.Text() != *step.Expect {
			err = fmt.Errorf("%w: got %q, want %q", ErrExpectation, sess.Text(), *step.Expect)
		}

		if err != nil {
			return report, r.fail(span, fmt.Errorf("step %d (%s): %w", i, step.Op, err))
		}

		stepReport.Index = i
		stepReport.Op = step.Op
		report.Steps = append(report.Steps, stepReport)
	}

	r.logger.InfoContext(ctx, "script replayed",
		"script.name", s.Name,
		"script.steps", len(s.Steps),
		"patch.hunks", sess.Patch().ChangeCount(),
		"markers.invalid", sess.Invalid().Len())

	return report, nil
}

func (r *Runner) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

func addMarker(ctx context.Context, sess *session.Session, def MarkerDef) error {
	opts := []session.MarkerOption{session.Exclusive(def.Exclusive)}

	if strategy, ok := def.Strategy(); ok {
		opts = append(opts, session.InvalidateWith(strategy))
	}

	return sess.AddMarker(ctx, markerindex.ID(def.ID), def.Range.Range(), opts...)
}

func (r *Runner) runStep(
	ctx context.Context, sess *session.Session, checkpoints map[string]uint32, step Step,
) (StepReport, error) {
	var report StepReport

	switch step.Op {
	case OpEdit:
		result, err := sess.Edit(ctx, step.Range.Range(), step.Text)
		if err != nil {
			return report, err
		}

		report.Changes = 1
		report.Splice = &result.Splice
		report.Invalidated = result.Invalidated

	case OpUndo, OpRedo:
		replay := sess.Undo
		if step.Op == OpRedo {
			replay = sess.Redo
		}

		result, err := replay(ctx)

		switch {
		case errors.Is(err, session.ErrNothingToUndo), errors.Is(err, session.ErrNothingToRedo):
			report.Skipped = true
		case err != nil:
			return report, err
		default:
			report.Changes = result.Changes
			report.Invalidated = result.Invalidated
		}

	case OpCheckpoint:
		checkpoints[step.Checkpoint] = sess.Checkpoint(step.Barrier)

	case OpGroup:
		if step.Checkpoint == "" {
			report.Skipped = !sess.GroupLastChanges()

			break
		}

		id, ok := checkpoints[step.Checkpoint]
		if !ok {
			return report, fmt.Errorf("%w: %q", ErrUnknownCheckpoint, step.Checkpoint)
		}

		err := sess.GroupChangesSinceCheckpoint(id, false)
		if err != nil {
			return report, err
		}

	case OpRevert:
		id, ok := checkpoints[step.Checkpoint]
		if !ok {
			return report, fmt.Errorf("%w: %q", ErrUnknownCheckpoint, step.Checkpoint)
		}

		result, err := sess.RevertToCheckpoint(ctx, id)
		if err != nil {
			return report, err
		}

		report.Changes = result.Changes
		report.Invalidated = result.Invalidated

	case OpMark:
		err := addMarker(ctx, sess, *step.Marker)
		if err != nil {
			return report, err
		}

	case OpUnmark:
		err := sess.RemoveMarker(ctx, markerindex.ID(step.ID))
		if err != nil {
			return report, err
		}
	}

	return report, nil
}
