// Package httpapi exposes the gateway catalog over HTTP. Every route shapes the
// request into a payload, dispatches it to the module's backend and wraps the
// answer in the response envelope.
package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/drblury/protogate/internal/runtime/dispatch"
	"github.com/drblury/protogate/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/modules"
	"github.com/drblury/protogate/transport"
)

const maxBodyBytes = 4 << 20

// Gateway is what the HTTP layer needs from the dispatch runtime.
type Gateway interface {
	Call(ctx context.Context, module, op string, payload transport.Payload) (dispatch.Response, error)
	Statuses() []dispatch.ConnectionStatus
}

// UsageReporter is implemented by gateways that report process usage on
// /health.
type UsageReporter interface {
	Usage() any
}

// HealthReport is the data of the /health envelope.
type HealthReport struct {
	Connections []dispatch.ConnectionStatus `json:"connections"`
	Usage       any                         `json:"usage,omitempty"`
}

// Options configures the HTTP layer.
type Options struct {
	Prefix         string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	DefaultLang    string
	SupportedLangs []string
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	Logger  loggingpkg.ServiceLogger
}

// Server is the gin engine serving the catalog.
type Server struct {
	engine   *gin.Engine
	gw       Gateway
	locales  *locales
	validate *validator.Validate
}

// listQuery holds the filters of paginated list routes.
type listQuery struct {
	PageSize   *int   `form:"page_size" validate:"omitempty,min=1,max=1000"`
	Page       *int   `form:"page" validate:"omitempty,min=1"`
	SearchText string `form:"searchText" validate:"max=256"`
	IsActive   string `form:"is_active" validate:"omitempty,oneof=0 1 true false"`
	SortColumn string `form:"sortColumn" validate:"omitempty,max=64"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=ASC DESC asc desc"`
}

// New mounts every route of catalog under opts.Prefix.
func New(gw Gateway, catalog []modules.Module, opts Options) (*Server, error) {
	if gw == nil {
		return nil, fmt.Errorf("httpapi: gateway is required")
	}
	if err := modules.Validate(catalog); err != nil {
		return nil, err
	}
	loc, err := newLocales(opts.DefaultLang, opts.SupportedLangs)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = loggingpkg.Nop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})

	s := &Server{
		engine:   gin.New(),
		gw:       gw,
		locales:  loc,
		validate: v,
	}

	s.engine.Use(Recovery(logger), RequestLogger(logger), CORS(opts.CORSOrigins))
	if opts.RateLimitRPS > 0 {
		s.engine.Use(NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware())
	}
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorBody{StatusCode: http.StatusNotFound, Message: "route not found"})
	})

	s.engine.GET("/health", s.health)
	if opts.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := s.engine.Group(opts.Prefix)
	for _, m := range catalog {
		group := api.Group("/" + m.Path)
		for _, route := range m.Routes {
			group.Handle(route.Method, route.Path, s.chain(m.Name, route)...)
		}
	}
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Routes lists the mounted routes.
func (s *Server) Routes() gin.RoutesInfo { return s.engine.Routes() }

func (s *Server) chain(module string, route modules.Route) []gin.HandlerFunc {
	handlers := []gin.HandlerFunc{s.lang}
	if !route.Public {
		handlers = append(handlers, s.authenticate)
		if route.Permission != "" {
			handlers = append(handlers, s.authorize(route.Permission))
		}
	}
	return append(handlers, s.dispatch(module, route))
}

func (s *Server) dispatch(module string, route modules.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, err := s.input(c, route.Shape)
		if err != nil {
			writeError(c, err)
			return
		}
		resp, err := s.gw.Call(c.Request.Context(), module, route.Operation, route.Shape.Payload(in))
		if err != nil {
			writeError(c, err)
			return
		}
		writeResponse(c, resp)
	}
}

func (s *Server) input(c *gin.Context, shape modules.Shape) (modules.Input, error) {
	in := modules.Input{
		Lang:   c.GetString(langKey),
		Query:  c.Request.URL.Query(),
		Params: make(map[string]string, len(shape.Params)),
	}
	if identity, ok := c.Get(authKey); ok {
		in.Auth = identity
	}

	for _, name := range shape.Params {
		value := c.Param(name)
		if name == "uuid" {
			if !isCanonicalUUID(value) {
				return in, badRequest("uuid must be a valid UUID")
			}
		}
		in.Params[name] = value
	}

	if shape.List {
		var q listQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			return in, badRequest("invalid list query: " + err.Error())
		}
		if err := s.validate.Struct(q); err != nil {
			return in, badRequest(validationMessage(err))
		}
	}

	if shape.Body && c.Request.Body != nil {
		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			return in, badRequest("request body too large or unreadable")
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			var body any
			if !jsoncodec.Valid(raw) || jsoncodec.Unmarshal(raw, &body) != nil {
				return in, badRequest("request body must be valid JSON")
			}
			in.Body = body
		}
	}
	return in, nil
}

// isCanonicalUUID accepts only the dashed 36 character form. uuid.Parse alone
// also takes the braced, urn and undashed forms.
func isCanonicalUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}

func validationMessage(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func (s *Server) health(c *gin.Context) {
	statuses := s.gw.Statuses()
	code, status, message := http.StatusOK, "ok", "all backends connected"
	for _, st := range statuses {
		if st.State != dispatch.StateConnected {
			code, status, message = http.StatusServiceUnavailable, "degraded", "backend "+st.Backend+" is "+string(st.State)
			break
		}
	}
	report := HealthReport{Connections: statuses}
	if r, ok := s.gw.(UsageReporter); ok {
		report.Usage = r.Usage()
	}
	c.JSON(code, Envelope{StatusCode: code, Status: status, Message: message, Data: report})
}
