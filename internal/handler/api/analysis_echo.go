package api

import (
	"errors"

	"NavGuard/internal/domain/models"
	"NavGuard/internal/normalizer"
	"NavGuard/internal/orchestrator"
	"NavGuard/internal/usecase"
	xhttp "NavGuard/pkg/http"
	xlogger "NavGuard/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
)

// AnalysisEchoHandler serves the dashboard API.
type AnalysisEchoHandler struct {
	logger    *xlogger.Logger
	uc        *usecase.Analysis
	stream    echo.HandlerFunc
	throttled []echo.MiddlewareFunc
}

// NewAnalysisEchoHandler creates the handler. stream serves /api/stream;
// throttle, if any, guards submissions.
func NewAnalysisEchoHandler(logger *xlogger.Logger, uc *usecase.Analysis, stream echo.HandlerFunc, throttle ...echo.MiddlewareFunc) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{logger: logger, uc: uc, stream: stream, throttled: throttle}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Liveness)

	g := e.Group("/api")
	g.GET("/form/defaults", h.FormDefaults)
	g.POST("/analysis", h.Submit, h.throttled...)
	g.GET("/analysis", h.Current)
	g.DELETE("/analysis", h.Cancel)
	g.GET("/service/health", h.ServiceHealth)
	if h.stream != nil {
		g.GET("/stream", h.stream)
	}
}

func (h *AnalysisEchoHandler) Liveness(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *AnalysisEchoHandler) FormDefaults(c echo.Context) error {
	d := &models.FormDefaults{}
	if err := defaults.Set(d); err != nil {
		h.logger.Error("form defaults", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, d)
}

// Submit validates telemetry and starts an analysis. In wait mode it answers
// with the settled snapshot; in async mode with 202 and the current one.
func (h *AnalysisEchoHandler) Submit(c echo.Context) error {
	q := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateQuery(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	in := &models.TelemetryInput{}
	if verr := xhttp.ReadAndValidateRequest(c, in); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ch, err := h.uc.Analyze(*in)
	if err != nil {
		var ve models.ValidationErrors
		if errors.As(err, &ve) {
			return xhttp.BadRequestResponse(c, validationResponse(ve))
		}
		h.logger.Error("analyze", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	if q.Mode == models.ModeAsync {
		return xhttp.AcceptedResponse(c, h.uc.Snapshot())
	}

	select {
	case out := <-ch:
		if out.Err != nil {
			return xhttp.AppErrorResponse(c, outcomeError(out))
		}
		return xhttp.SuccessResponse(c, h.uc.SnapshotOf(out.State))
	case <-c.Request().Context().Done():
		// caller left; the request keeps running and is visible via GET
		return xhttp.AcceptedResponse(c, h.uc.Snapshot())
	}
}

func (h *AnalysisEchoHandler) Current(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Snapshot())
}

func (h *AnalysisEchoHandler) Cancel(c echo.Context) error {
	if h.uc.Cancel() {
		h.logger.Info("analysis cancelled by operator")
	}
	return xhttp.NoContentResponse(c)
}

func (h *AnalysisEchoHandler) ServiceHealth(c echo.Context) error {
	res, err := h.uc.Health(c.Request().Context())
	if err != nil {
		h.logger.Warn("prediction service health probe failed", xlogger.Error(err))
		var se *models.ServiceError
		if errors.As(err, &se) {
			return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("ERR_UPSTREAM", se.Detail).
				WithParam("upstream_status", se.StatusCode))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("ERR_UPSTREAM", "Prediction service unreachable"))
	}
	return xhttp.SuccessResponse(c, res)
}

func validationResponse(ve models.ValidationErrors) []xhttp.ValidationError {
	out := make([]xhttp.ValidationError, 0, len(ve))
	for _, fe := range ve {
		code := "ERR_INVALID_NUMBER"
		if fe.Reason == normalizer.ReasonRequired {
			code = "ERR_REQUIRED"
		}
		out = append(out, xhttp.ValidationError{
			Code:    code,
			Field:   fe.Field,
			Message: fe.Error(),
			Params:  map[string]interface{}{"value": fe.Value},
		})
	}
	return out
}

func outcomeError(out orchestrator.Outcome) *xhttp.AppError {
	ae := out.Err
	var appErr *xhttp.AppError
	switch ae.Kind {
	case models.KindTimeout:
		appErr = xhttp.GatewayTimeoutError("ERR_TIMEOUT", ae.Message())
	case models.KindService:
		appErr = xhttp.UnprocessableError("ERR_SERVICE", ae.Message())
		var se *models.ServiceError
		if errors.As(ae, &se) {
			appErr.WithParam("upstream_status", se.StatusCode)
		}
	case models.KindCancelled:
		appErr = xhttp.ConflictError("ERR_SUPERSEDED", ae.Message())
	default:
		appErr = xhttp.BadGatewayError("ERR_UPSTREAM", ae.Message())
	}
	return appErr.WithParam("generation", out.State.Generation).WithError(ae)
}
