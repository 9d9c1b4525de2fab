package procedure

import (
	"net/http"
	"time"

	"sp-service/internal/resultset"
	"sp-service/pkg/logger"
	"sp-service/pkg/req"
	"sp-service/pkg/res"

	"github.com/sirupsen/logrus"
)

type ControllerDeps struct {
	*Service
	Log         logrus.FieldLogger
	XMLEncoding string
	// Now is used for error timestamps and the XML generated_time; defaults to time.Now.
	Now func() time.Time
}

type Controller struct {
	*Service
	log         logrus.FieldLogger
	xmlEncoding string
	now         func() time.Time
}

func NewController(router *http.ServeMux, deps ControllerDeps) *Controller {
	c := &Controller{
		Service:     deps.Service,
		log:         deps.Log,
		xmlEncoding: deps.XMLEncoding,
		now:         deps.Now,
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	if c.xmlEncoding == "" {
		c.xmlEncoding = "utf-8"
	}
	if c.now == nil {
		c.now = time.Now
	}

	for _, route := range []string{"/users", "/jsonService"} {
		router.Handle("GET "+route, c.JSON())
		router.Handle("POST "+route, c.JSON())
	}
	router.Handle("GET /xmlService", c.XML())
	router.Handle("POST /xmlService", c.XML())
	return c
}

func (c *Controller) JSON() http.HandlerFunc {
	return c.serve(func(batch resultset.Batch) ([]byte, string, error) {
		body, err := resultset.ToJSON(batch)
		return body, res.ContentTypeJSON, err
	})
}

func (c *Controller) XML() http.HandlerFunc {
	return c.serve(func(batch resultset.Batch) ([]byte, string, error) {
		body, err := resultset.ToXML(batch, c.now(), c.xmlEncoding)
		return body, resultset.ContentType(c.xmlEncoding), err
	})
}

type encodeFunc func(batch resultset.Batch) (body []byte, contentType string, err error)

func (c *Controller) serve(encode encodeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context(), c.log)

		params, err := req.ParseInvocation(r)
		if err != nil {
			log.WithError(err).Warn("could not read request parameters")
			c.fail(w, err, nil)
			return
		}
		log.WithFields(logrus.Fields{
			"param1": params.Param1,
			"param2": params.Param2,
		}).Infof("%s %s", r.Method, r.URL.Path)

		batch, err := c.Service.Run(r.Context(), &InvocationRequest{
			Procedure: params.Param1,
			Parameter: params.Param2,
		})
		if err != nil {
			c.fail(w, err, params)
			return
		}

		body, contentType, err := encode(batch)
		if err != nil {
			log.WithError(err).Error("serializing result sets failed")
			c.fail(w, err, params)
			return
		}
		res.Raw(w, body, contentType, http.StatusOK)
	}
}

// fail writes the error envelope. params is nil when the request could not be parsed.
func (c *Controller) fail(w http.ResponseWriter, err error, params *req.InvocationParams) {
	env := ErrorEnvelope{
		Success:   false,
		Message:   err.Error(),
		Timestamp: resultset.FormatTime(c.now()),
	}
	if params != nil {
		env.Param1 = &params.Param1
		env.Param2 = &params.Param2
	}
	res.Json(w, env, http.StatusInternalServerError)
}
