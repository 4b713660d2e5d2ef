package http

import (
	"net/http"

	"credit-acceleration/internal/usecase/notification"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	d   *notification.Dispatcher
	log *zap.Logger
}

func NewNotificationHandler(d *notification.Dispatcher, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{d: d, log: nopIfNil(log)}
}

func (h *NotificationHandler) List(c echo.Context) error {
	var unread bool
	if err := echo.QueryParamsBinder(c).Bool("unread_only", &unread).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query", Code: "bad_request"})
	}
	out, err := h.d.ListNotifications(c.Request().Context(), c.Param("loan_id"), unread)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	n, err := h.d.MarkNotificationRead(c.Request().Context(), c.Param("notification_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, n)
}
