package main

import (
	"context"
	"net/http"

	"sp-service/configs"
	"sp-service/internal/procedure"
	"sp-service/internal/stats"
	"sp-service/pkg/db"
	"sp-service/pkg/metrics"
	"sp-service/pkg/middleware"
	"sp-service/pkg/redis"
	"sp-service/pkg/res"

	"github.com/sirupsen/logrus"
)

type appDeps struct {
	Dialer     db.Dialer
	StatsStore stats.Store
	Metrics    *metrics.Metrics
}

// App checks the configuration, connects the stats store when one is configured and
// returns the HTTP handler. cleanup releases what App opened.
func App(ctx context.Context, conf *configs.Config, log *logrus.Logger) (handler http.Handler, cleanup func(), err error) {
	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}
	if err := conf.CheckNativeLibs(); err != nil {
		return nil, nil, err
	}

	dialer, err := db.NewSQLDialer(conf.DbConfig)
	if err != nil {
		return nil, nil, err
	}

	deps := appDeps{Dialer: dialer}
	cleanup = func() {}

	if conf.RedisConfig.Addr != "" {
		rdb, err := redis.NewRedis(ctx, conf.RedisConfig)
		if err != nil {
			// Stats are optional; serve without them.
			log.WithError(err).Warn("call stats disabled")
		} else {
			deps.StatsStore = rdb
			cleanup = func() {
				if err := rdb.Close(); err != nil {
					log.WithError(err).Warn("redis close failed")
				}
			}
		}
	}

	if conf.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	return newRouter(conf, log, deps), cleanup, nil
}

func newRouter(conf *configs.Config, log *logrus.Logger, deps appDeps) http.Handler {
	router := http.NewServeMux()

	// services
	statsService := stats.NewService(stats.ServiceDeps{
		Store: deps.StatsStore,
		Log:   log,
	})
	procedureService := procedure.NewService(procedure.ServiceDeps{
		Dialer:      deps.Dialer,
		Log:         log,
		Metrics:     deps.Metrics,
		Recorder:    statsService,
		CallTimeout: conf.DbConfig.CallTimeout,
	})

	// controllers
	procedure.NewController(router, procedure.ControllerDeps{
		Service:     procedureService,
		Log:         log,
		XMLEncoding: conf.XMLEncoding,
	})
	stats.NewController(router, stats.ControllerDeps{
		Service: statsService,
		Log:     log,
	})

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		res.Json(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	if deps.Metrics != nil {
		router.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return middleware.Logging(log, deps.Metrics, router)
}
