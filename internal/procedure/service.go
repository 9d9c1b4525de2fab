package procedure

import (
	"context"
	"strings"
	"time"

	"sp-service/internal/resultset"
	"sp-service/pkg/db"
	"sp-service/pkg/logger"
	"sp-service/pkg/metrics"

	"github.com/sirupsen/logrus"
)

const defaultCallTimeout = 30 * time.Second

// Recorder keeps per-procedure call history. Implementations must not fail the call.
type Recorder interface {
	Record(ctx context.Context, procedure, outcome string, took time.Duration)
}

type ServiceDeps struct {
	Dialer      db.Dialer
	Log         logrus.FieldLogger
	Metrics     *metrics.Metrics
	Recorder    Recorder
	CallTimeout time.Duration
}

type Service struct {
	dialer      db.Dialer
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
	recorder    Recorder
	callTimeout time.Duration
}

func NewService(deps ServiceDeps) *Service {
	timeout := deps.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		dialer:      deps.Dialer,
		log:         log,
		metrics:     deps.Metrics,
		recorder:    deps.Recorder,
		callTimeout: timeout,
	}
}

// Run invokes the requested procedure on a fresh session and returns all of its
// result sets. The session is released on every path.
func (s *Service) Run(ctx context.Context, req *InvocationRequest) (resultset.Batch, error) {
	start := time.Now()
	batch, err := s.run(ctx, req)

	outcome := Outcome(err)
	s.metrics.ObserveCall(outcome, len(batch))
	if s.recorder != nil && outcome != OutcomeValidation {
		s.recorder.Record(ctx, strings.TrimSpace(req.Procedure), outcome, time.Since(start))
	}
	return batch, err
}

func (s *Service) run(ctx context.Context, req *InvocationRequest) (resultset.Batch, error) {
	if req == nil {
		return nil, ValidationError{Field: "request", Reason: "request is nil"}
	}
	if err := ValidateProcedureName(req.Procedure); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"procedure": strings.TrimSpace(req.Procedure),
		"parameter": req.Parameter,
	})

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	session, err := db.Acquire(cctx, s.dialer, log)
	if err != nil {
		code, desc := db.DriverError(err)
		log.WithError(err).Error("database connection failed")
		return nil, ConnectionError{Code: code, Description: desc, Err: err}
	}
	defer session.Release()

	if err := Invoke(cctx, session.Cursor(), req.Procedure, req.Parameter); err != nil {
		log.WithError(err).Error("procedure call failed")
		return nil, err
	}

	batch, err := Drain(session.Cursor())
	if err != nil {
		if cErr, ok := err.(CollectionError); ok {
			cErr.Procedure = strings.TrimSpace(req.Procedure)
			err = cErr
		}
		log.WithError(err).Error("reading result sets failed")
		return nil, err
	}

	if err := session.Commit(); err != nil {
		log.WithError(err).Error("commit failed")
		return nil, CollectionError{Procedure: strings.TrimSpace(req.Procedure), Op: "commit", Err: err}
	}

	for i, rs := range batch {
		log.Debugf("result set %d: %d rows", i+1, len(rs.Rows))
	}
	log.WithField("result_sets", len(batch)).Info("procedure call completed")
	return batch, nil
}
