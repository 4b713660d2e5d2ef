package http

import (
	"net/http"

	"credit-acceleration/internal/usecase/assessment"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AssessmentHandler struct {
	uc  *assessment.Usecase
	log *zap.Logger
}

func NewAssessmentHandler(uc *assessment.Usecase, log *zap.Logger) *AssessmentHandler {
	return &AssessmentHandler{uc: uc, log: nopIfNil(log)}
}

// Assess scores the loan. With ?async=true the run is queued and 202 is
// returned immediately; the result shows up on the loan.
func (h *AssessmentHandler) Assess(c echo.Context) error {
	loanID := c.Param("loan_id")
	var async bool
	if err := echo.QueryParamsBinder(c).Bool("async", &async).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query", Code: "bad_request"})
	}
	if async {
		if _, err := h.uc.Submit(c.Request().Context(), loanID); err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusAccepted, map[string]string{"loan_id": loanID, "status": "accepted"})
	}
	a, err := h.uc.AssessLoanApplication(c.Request().Context(), loanID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *AssessmentHandler) Cancel(c echo.Context) error {
	loanID := c.Param("loan_id")
	return c.JSON(http.StatusOK, map[string]any{"loan_id": loanID, "cancelled": h.uc.Cancel(loanID)})
}
