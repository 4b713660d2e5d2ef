package http

import (
	"net/http"

	"credit-acceleration/internal/usecase/guarantee"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type GuaranteeHandler struct {
	uc  *guarantee.Usecase
	log *zap.Logger
}

func NewGuaranteeHandler(uc *guarantee.Usecase, log *zap.Logger) *GuaranteeHandler {
	return &GuaranteeHandler{uc: uc, log: nopIfNil(log)}
}

type createGuaranteeReq struct {
	Provider           string   `json:"provider"            validate:"max=128"`
	CoveragePercentage float64  `json:"coverage_percentage" validate:"gt=0,lte=1"`
	MaxClaimAmount     float64  `json:"max_claim_amount"    validate:"gt=0,dec2"`
	Deductible         float64  `json:"deductible"          validate:"gte=0,dec2"`
	Premium            float64  `json:"premium"             validate:"gte=0,dec2"`
	CoveredEvents      []string `json:"covered_events"      validate:"dive,oneof=payment_default bankruptcy foreclosure death disability"`
	TermMonths         int      `json:"term_months"         validate:"gte=0,lte=600"`
}

func (h *GuaranteeHandler) Create(c echo.Context) error {
	var req createGuaranteeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	g, err := h.uc.CreateGuarantee(c.Request().Context(), c.Param("loan_id"), guarantee.CreateInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *GuaranteeHandler) Get(c echo.Context) error {
	v, err := h.uc.GetGuarantee(c.Request().Context(), c.Param("guarantee_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

type claimReq struct {
	EventType   string  `json:"event_type"   validate:"required,oneof=payment_default bankruptcy foreclosure death disability"`
	ClaimAmount float64 `json:"claim_amount" validate:"gt=0,dec2"`
	Description string  `json:"description"  validate:"max=512"`
}

func (h *GuaranteeHandler) SubmitClaim(c echo.Context) error {
	var req claimReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	cl, err := h.uc.SubmitGuaranteeClaim(c.Request().Context(), c.Param("guarantee_id"), guarantee.ClaimInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *GuaranteeHandler) StartInvestigation(c echo.Context) error {
	cl, err := h.uc.StartInvestigation(c.Request().Context(), c.Param("claim_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cl)
}

type decisionReq struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" validate:"max=512"`
}

func (h *GuaranteeHandler) Decide(c echo.Context) error {
	var req decisionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	cl, err := h.uc.DecideClaim(c.Request().Context(), c.Param("claim_id"), guarantee.DecisionInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *GuaranteeHandler) Payout(c echo.Context) error {
	res, err := h.uc.ProcessGuaranteePayout(c.Request().Context(), c.Param("claim_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
