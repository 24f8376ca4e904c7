package api

import (
	"errors"
	"net/http"

	models "GoldPredict/internal/domain/models"
	domrepo "GoldPredict/internal/domain/repository"
	"GoldPredict/internal/usecase"
	xhttp "GoldPredict/pkg/http"
	xlogger "GoldPredict/pkg/logger"
	xutil "GoldPredict/pkg/util"

	"github.com/labstack/echo/v4"
)

const rateLimitedMessage = "Too many submissions, please wait a moment"

// FormEchoHandler exposes form sessions over JSON.
type FormEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionRegistry
	guard    *usecase.SubmitGuard
	history  domrepo.Storage
}

func NewFormEchoHandler(logger *xlogger.Logger, sessions *usecase.SessionRegistry, guard *usecase.SubmitGuard) *FormEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &FormEchoHandler{logger: logger, sessions: sessions, guard: guard}
}

// SetHistory enables the submission history endpoint.
func (h *FormEchoHandler) SetHistory(s domrepo.Storage) { h.history = s }

func (h *FormEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.POST("/sessions", h.CreateSession)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DeleteSession)
	g.PUT("/sessions/:id/fields/:field", h.UpdateField)
	g.POST("/sessions/:id/submit", h.Submit)
	if h.history != nil {
		g.GET("/sessions/:id/history", h.History)
	}
}

func (h *FormEchoHandler) CreateSession(c echo.Context) error {
	ctrl := h.sessions.Create()
	return xhttp.CreatedResponse(c, models.NewFormView(ctrl.Snapshot()))
}

func (h *FormEchoHandler) GetSession(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, models.NewFormView(ctrl.Snapshot()))
}

func (h *FormEchoHandler) DeleteSession(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.sessions.Delete(ctrl.ID())
	return xhttp.NoContentResponse(c)
}

func (h *FormEchoHandler) UpdateField(c echo.Context) error {
	req := &models.FieldUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	field, err := models.ParseField(req.Field)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	ctrl, err := h.lookup(req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if err := ctrl.UpdateField(field, req.Value); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, models.NewFormView(ctrl.Snapshot()))
}

func (h *FormEchoHandler) Submit(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	body := &models.SubmitRequest{}
	if err := (&echo.DefaultBinder{}).BindBody(c, body); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("invalid submit body"))
	}
	inputs := make(map[models.Field]string, len(body.Values))
	for name, raw := range body.Values {
		f, err := models.ParseField(name)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithParam("field", name))
		}
		inputs[f] = raw
	}
	if !h.guard.Allow(c.Request().Context(), xhttp.ClientKey(c)) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(rateLimitedMessage))
	}
	for f, raw := range inputs {
		if err := ctrl.UpdateField(f, raw); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
	}
	snap := ctrl.Submit(c.Request().Context())
	return xhttp.SuccessResponse(c, models.NewFormView(snap))
}

// Predict runs one stateless submission. Validation failures return the
// per-field list, request failures return the visitor-facing detail.
func (h *FormEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.guard.Allow(c.Request().Context(), xhttp.ClientKey(c)) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(rateLimitedMessage))
	}

	ctrl := h.sessions.NewDetached()
	defer ctrl.Close()
	ctrl.SetValues(req.Values())
	snap := ctrl.Submit(c.Request().Context())

	switch snap.State.Kind {
	case models.StateSucceeded:
		p := snap.State.Prediction
		return xhttp.SuccessResponse(c, models.PredictResponse{Prediction: p, Display: xutil.FormatUSD(p)})
	case models.StateFailed:
		return xhttp.DataResponse(c, http.StatusBadGateway, map[string]string{"detail": snap.State.Message})
	default:
		return xhttp.BadRequestResponse(c, snap.Errors.Map())
	}
}

func (h *FormEchoHandler) History(c echo.Context) error {
	ctrl, err := h.session(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 20)
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := h.history.Query(c.Request().Context(), ctrl.ID(), limit)
	if err != nil {
		h.logger.Error("history query failed", xlogger.String("session_id", ctrl.ID()), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *FormEchoHandler) session(c echo.Context) (*usecase.FormController, error) {
	req := &models.SessionRequest{}
	if err := (&echo.DefaultBinder{}).BindPathParams(c, req); err != nil {
		return nil, xhttp.BadRequestError("invalid session id")
	}
	if verr := xhttp.Validate(req); verr != nil {
		return nil, xhttp.BadRequestError(verr[0].Message).WithParam("field", verr[0].Field)
	}
	return h.lookup(req.ID)
}

func (h *FormEchoHandler) lookup(id string) (*usecase.FormController, error) {
	ctrl, err := h.sessions.Get(id)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		return nil, xhttp.NotFoundErrorf("session %s not found", id)
	}
	return ctrl, err
}
