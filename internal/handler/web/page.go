package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	models "GoldPredict/internal/domain/models"
	"GoldPredict/internal/usecase"
	xhttp "GoldPredict/pkg/http"
	applogger "GoldPredict/pkg/logger"
	xutil "GoldPredict/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	pageTitle         = "Gold Price Prediction"
	defaultCookieName = "gp_session"
	rateLimitedNotice = "Too many submissions, please wait a moment and try again."
)

//go:embed templates/*.html static/*
var assets embed.FS

var pageTmpl = template.Must(template.ParseFS(assets, "templates/index.html"))

// PageOption configures PageHandler.
type PageOption func(*PageHandler)

// WithCookie sets the session cookie name and its Secure flag.
func WithCookie(name string, secure bool) PageOption {
	return func(h *PageHandler) {
		if name != "" {
			h.cookieName = name
		}
		h.secure = secure
	}
}

// WithLogger sets the handler logger.
func WithLogger(l *applogger.Logger) PageOption {
	return func(h *PageHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// PageHandler serves the server-rendered form page. Each page load starts a
// fresh session; posts re-render the page so the form works without script.
type PageHandler struct {
	logger     *applogger.Logger
	sessions   *usecase.SessionRegistry
	guard      *usecase.SubmitGuard
	cookieName string
	secure     bool
}

var _ xhttp.Handler = (*PageHandler)(nil)

func NewPageHandler(sessions *usecase.SessionRegistry, guard *usecase.SubmitGuard, opts ...PageOption) *PageHandler {
	h := &PageHandler{
		logger:     applogger.Nop(),
		sessions:   sessions,
		guard:      guard,
		cookieName: defaultCookieName,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PageHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.POST("/", h.Submit)
	e.StaticFS("/static", echo.MustSubFS(assets, "static"))
}

// Index starts a new session and renders the empty form.
func (h *PageHandler) Index(c echo.Context) error {
	ctrl := h.sessions.Create()
	h.setCookie(c, ctrl.ID())
	return h.render(c, http.StatusOK, ctrl.Snapshot(), "")
}

// Submit applies the posted inputs, submits and re-renders the page.
func (h *PageHandler) Submit(c echo.Context) error {
	ctrl := h.current(c)
	for _, f := range models.Fields {
		_ = ctrl.UpdateField(f, c.FormValue(f.String()))
	}

	ctx := c.Request().Context()
	if !h.guard.Allow(ctx, xhttp.ClientKey(c)) {
		return h.render(c, http.StatusTooManyRequests, ctrl.Snapshot(), rateLimitedNotice)
	}
	return h.render(c, http.StatusOK, ctrl.Submit(ctx), "")
}

// current returns the session named by the cookie, starting a new one when
// the cookie is missing or the session has expired.
func (h *PageHandler) current(c echo.Context) *usecase.FormController {
	if ck, err := c.Cookie(h.cookieName); err == nil {
		if ctrl, err := h.sessions.Get(ck.Value); err == nil {
			return ctrl
		}
	}
	ctrl := h.sessions.Create()
	h.setCookie(c, ctrl.ID())
	return ctrl
}

func (h *PageHandler) setCookie(c echo.Context, id string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type fieldView struct {
	Name  string
	Value string
	Error string
}

type pageData struct {
	Title     string
	SessionID string
	Fields    []fieldView
	Loading   bool
	Display   string
	Error     string
	Notice    string
}

func newPageData(s models.Snapshot, notice string) pageData {
	d := pageData{
		Title:     pageTitle,
		SessionID: s.SessionID,
		Fields:    make([]fieldView, 0, len(models.Fields)),
		Loading:   s.Loading(),
		Notice:    notice,
	}
	for _, f := range models.Fields {
		d.Fields = append(d.Fields, fieldView{
			Name:  f.String(),
			Value: xutil.FormatFloatInput(s.Values.Get(f)),
			Error: s.Errors.Message(f),
		})
	}
	switch s.State.Kind {
	case models.StateSucceeded:
		d.Display = xutil.FormatUSD(s.State.Prediction)
	case models.StateFailed:
		d.Error = s.State.Message
	}
	return d
}

func (h *PageHandler) render(c echo.Context, status int, s models.Snapshot, notice string) error {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, newPageData(s, notice)); err != nil {
		h.logger.Error("render page failed", applogger.String("session_id", s.SessionID), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(status, buf.Bytes())
}
