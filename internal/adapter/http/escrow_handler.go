package http

import (
	"net/http"
	"time"

	"credit-acceleration/internal/usecase/escrow"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	uc  *escrow.Usecase
	log *zap.Logger
}

func NewEscrowHandler(uc *escrow.Usecase, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{uc: uc, log: nopIfNil(log)}
}

type createEscrowReq struct {
	MonthlyTaxImpound       float64 `json:"monthly_tax_impound"       validate:"gte=0,dec2"`
	MonthlyInsuranceImpound float64 `json:"monthly_insurance_impound" validate:"gte=0,dec2"`
}

func (h *EscrowHandler) CreateAccount(c echo.Context) error {
	var req createEscrowReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.uc.CreateEscrowAccount(c.Request().Context(), c.Param("loan_id"), escrow.CreateAccountInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *EscrowHandler) GetAccount(c echo.Context) error {
	v, err := h.uc.GetEscrowAccount(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

type escrowTxReq struct {
	Type        string     `json:"type"        validate:"required,oneof=deposit withdrawal tax_payment insurance_payment"`
	Amount      float64    `json:"amount"      validate:"gt=0,dec2"`
	Description string     `json:"description" validate:"max=255"`
	Payee       string     `json:"payee"       validate:"max=128"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (h *EscrowHandler) Transact(c echo.Context) error {
	var req escrowTxReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.ProcessEscrowTransaction(c.Request().Context(), c.Param("loan_id"), escrow.TransactionInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
