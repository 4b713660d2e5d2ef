package http

import (
	"net/http"
	"strings"
	"time"

	"credit-acceleration/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// actorID reads the caller identity header, writing a 400 when it is absent
// or malformed.
func actorID(c echo.Context) (string, bool, error) {
	actor := strings.TrimSpace(c.Request().Header.Get(middleware.HeaderActorID))
	if actor == "" {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + middleware.HeaderActorID, Code: "bad_request"})
	}
	if !reActor.MatchString(actor) {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + middleware.HeaderActorID, Code: "bad_request"})
	}
	return actor, true, nil
}
