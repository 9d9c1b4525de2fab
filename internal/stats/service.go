package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sp-service/internal/resultset"
	"sp-service/pkg/logger"
	"sp-service/pkg/redis"

	"github.com/sirupsen/logrus"
)

const recordTimeout = 2 * time.Second

var (
	ErrDisabled = errors.New("call stats are disabled")
	ErrNotFound = errors.New("no calls recorded for procedure")
)

// Store is the subset of *redis.Redisdb the stats need.
type Store interface {
	RecordCall(ctx context.Context, procedure, outcome string, took time.Duration, at time.Time) error
	CallStats(ctx context.Context, procedure string) (map[string]string, error)
}

var _ Store = (*redis.Redisdb)(nil)

type Stats struct {
	Procedure     string           `json:"procedure"`
	Total         int64            `json:"total"`
	Outcomes      map[string]int64 `json:"outcomes"`
	AvgDurationMs float64          `json:"avgDurationMs"`
	LastOutcome   string           `json:"lastOutcome"`
	LastCalledAt  string           `json:"lastCalledAt"`
}

type ServiceDeps struct {
	Store Store
	Log   logrus.FieldLogger
	Now   func() time.Time
}

type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewService builds the stats service. A nil Store disables recording and lookups.
func NewService(deps ServiceDeps) *Service {
	s := &Service{store: deps.Store, log: deps.Log, now: deps.Now}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Enabled() bool {
	return s.store != nil
}

// Record stores one call outcome. Failures are logged; the call itself already finished.
func (s *Service) Record(ctx context.Context, procedure, outcome string, took time.Duration) {
	if s.store == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.store.RecordCall(rctx, procedure, outcome, took, s.now()); err != nil {
		logger.FromContext(ctx, s.log).WithError(err).WithField("procedure", procedure).Warn("recording call stats failed")
	}
}

func (s *Service) Get(ctx context.Context, procedure string) (*Stats, error) {
	if s.store == nil {
		return nil, ErrDisabled
	}
	raw, err := s.store.CallStats(ctx, procedure)
	if err != nil {
		return nil, fmt.Errorf("read stats of %s: %w", procedure, err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	return parse(procedure, raw)
}

func parse(procedure string, raw map[string]string) (*Stats, error) {
	st := &Stats{
		Procedure:   procedure,
		Outcomes:    map[string]int64{},
		LastOutcome: raw[redis.FieldLastOutcome],
	}

	var durationMs int64
	for field, value := range raw {
		switch {
		case field == redis.FieldTotal:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("stats field %s: %w", field, err)
			}
			st.Total = n
		case field == redis.FieldDurationMs:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("stats field %s: %w", field, err)
			}
			durationMs = n
		case strings.HasPrefix(field, redis.OutcomeFieldPrefix):
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("stats field %s: %w", field, err)
			}
			st.Outcomes[strings.TrimPrefix(field, redis.OutcomeFieldPrefix)] = n
		case field == redis.FieldLastCalledAt:
			sec, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("stats field %s: %w", field, err)
			}
			st.LastCalledAt = resultset.FormatTime(time.Unix(sec, 0).UTC())
		}
	}

	if st.Total > 0 {
		st.AvgDurationMs = float64(durationMs) / float64(st.Total)
	}
	return st, nil
}
