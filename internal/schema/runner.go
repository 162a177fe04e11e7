package schema

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bar-bartender/internal/db"
)

var errStepFailed = errors.New("step reported failure")

// Result registra lo ocurrido con un paso.
type Result struct {
	Step    string
	Outcome Outcome
	Err     error
}

// Runner ejecuta pasos en orden, cada uno en su propia transaccion.
type Runner struct {
	db     *db.DB
	logger *zap.Logger
}

func NewRunner(store *db.DB, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{db: store, logger: logger}
}

// Run nunca se detiene ante un paso fallido: lo registra y sigue.
func (r *Runner) Run(ctx context.Context, steps []Step) []Result {
	results := make([]Result, 0, len(steps))
	for _, s := range steps {
		res := r.runStep(ctx, s)
		r.log(res)
		results = append(results, res)
	}
	return results
}

func (r *Runner) runStep(ctx context.Context, s Step) (res Result) {
	res.Step = s.Name
	defer func() {
		if p := recover(); p != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	var outcome Outcome
	err := r.db.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		o, err := s.Run(ctx, tx, r.db.Dialect)
		outcome = o
		if err != nil {
			return err
		}
		if o == OutcomeFailed {
			return errStepFailed
		}
		return nil
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	res.Outcome = outcome
	return res
}

func (r *Runner) log(res Result) {
	switch res.Outcome {
	case OutcomeApplied:
		r.logger.Info("schema step applied", zap.String("step", res.Step))
	case OutcomeFailed:
		r.logger.Warn("schema step failed", zap.String("step", res.Step), zap.Error(res.Err))
	default:
		r.logger.Debug("schema step",
			zap.String("step", res.Step),
			zap.String("outcome", string(res.Outcome)),
		)
	}
}
