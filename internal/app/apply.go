package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"envswitch/internal/profile"
	"envswitch/internal/store"
	"envswitch/internal/util/lockfile"
)

type ApplyRequest struct {
	Mode   string
	DryRun bool
}

const (
	StatusOK      = "ok"
	StatusFail    = "fail"
	StatusSkipped = "skipped"
)

type StepResult struct {
	Name    string
	Status  string // ok|fail|skipped
	Policy  Policy
	Message string
	Digest  string
	Err     error
}

type ApplyResult struct {
	Mode  profile.Mode
	Steps []StepResult
	// Warnings combines every failure that did not stop the run.
	Warnings error
	RunID    int64
}

// StepError is returned when a step with the abort policy fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Apply runs the switch pipeline for req.Mode. An invalid mode is rejected
// before anything is touched.
func (a *App) Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	var res ApplyResult

	mode, err := profile.ParseMode(req.Mode)
	if err != nil {
		return res, err
	}
	prof, err := a.cfg.Profile(mode)
	if err != nil {
		return res, err
	}
	res.Mode = mode

	// touches files and services; avoid concurrent applies
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	if !req.DryRun && a.paths.LockFile != "" {
		lock, err := lockfile.Acquire(a.paths.LockFile)
		if err != nil {
			return res, err
		}
		defer lock.Release()
	}

	started := a.now()
	log := a.log.With(zap.String("mode", mode.String()))
	log.Info("switching mode", zap.Bool("dry_run", req.DryRun))

	var fatal error
	for _, s := range a.steps {
		sr := StepResult{Name: s.name, Policy: s.policy}

		switch {
		case fatal != nil:
			sr.Status = StatusSkipped
			sr.Message = "not reached"
		case !s.enabled:
			sr.Status = StatusSkipped
			sr.Message = "disabled"
		case req.DryRun:
			sr.Status = StatusSkipped
			sr.Message = "dry-run: " + s.plan
			log.Info("would run step", zap.String("step", s.name), zap.String("plan", s.plan))
		default:
			rc := &runCtx{
				mode:    mode,
				profile: prof,
				warn: func(err error) {
					log.Warn("step warning", zap.String("step", s.name), zap.Error(err))
					res.Warnings = multierr.Append(res.Warnings, fmt.Errorf("%s: %w", s.name, err))
				},
			}
			log.Debug("running step", zap.String("step", s.name))
			out, err := s.run(ctx, rc)
			sr.Message, sr.Digest = out.message, out.digest
			if err == nil {
				sr.Status = StatusOK
				break
			}

			sr.Status = StatusFail
			sr.Err = err
			if s.policy == Abort {
				log.Error("step failed, aborting", zap.String("step", s.name), zap.Error(err))
				fatal = &StepError{Step: s.name, Err: err}
				break
			}
			log.Error("step failed, continuing", zap.String("step", s.name), zap.Error(err))
			res.Warnings = multierr.Append(res.Warnings, fmt.Errorf("%s: %w", s.name, err))
		}
		res.Steps = append(res.Steps, sr)
	}

	res.RunID = a.record(mode, req.DryRun, started, res, fatal)

	if fatal != nil {
		return res, fatal
	}
	log.Info("switch complete", zap.Int("warnings", len(multierr.Errors(res.Warnings))))
	return res, nil
}

func (a *App) record(mode profile.Mode, dry bool, started time.Time, res ApplyResult, fatal error) int64 {
	if a.st == nil {
		return 0
	}
	r := store.Run{
		Mode:       mode.String(),
		DryRun:     dry,
		Status:     StatusOK,
		StartedAt:  started,
		FinishedAt: a.now(),
	}
	if fatal != nil {
		r.Status = StatusFail
		r.Error = fatal.Error()
	}
	for _, s := range res.Steps {
		msg := s.Message
		if s.Err != nil {
			msg = s.Err.Error()
		}
		r.Steps = append(r.Steps, store.StepRecord{
			Name:    s.Name,
			Status:  s.Status,
			Policy:  string(s.Policy),
			Message: msg,
			Digest:  s.Digest,
		})
	}
	id, err := a.st.RecordRun(r)
	if err != nil {
		a.log.Warn("recording run history failed", zap.Error(err))
		return 0
	}
	return id
}

// FailedStep returns the name of the step that aborted err, if any.
func FailedStep(err error) (string, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
