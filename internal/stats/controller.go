package stats

import (
	"errors"
	"net/http"

	"sp-service/internal/procedure"
	"sp-service/pkg/logger"
	"sp-service/pkg/res"

	"github.com/sirupsen/logrus"
)

type ControllerDeps struct {
	*Service
	Log logrus.FieldLogger
}

type Controller struct {
	*Service
	log logrus.FieldLogger
}

func NewController(router *http.ServeMux, deps ControllerDeps) *Controller {
	c := &Controller{Service: deps.Service, log: deps.Log}
	if c.log == nil {
		c.log = logger.Discard()
	}
	router.Handle("GET /stats/{procedure}", c.Get())
	return c
}

func (c *Controller) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("procedure")
		if err := procedure.ValidateProcedureName(name); err != nil {
			res.Json(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
			return
		}

		st, err := c.Service.Get(r.Context(), name)
		switch {
		case errors.Is(err, ErrDisabled):
			res.Json(w, map[string]any{"error": err.Error()}, http.StatusServiceUnavailable)
		case errors.Is(err, ErrNotFound):
			res.Json(w, map[string]any{"error": err.Error()}, http.StatusNotFound)
		case err != nil:
			logger.FromContext(r.Context(), c.log).WithError(err).Error("reading call stats failed")
			res.Json(w, map[string]any{"error": err.Error()}, http.StatusInternalServerError)
		default:
			res.Json(w, st, http.StatusOK)
		}
	}
}
