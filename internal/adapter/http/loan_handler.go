package http

import (
	"net/http"
	"strings"
	"time"

	domain "credit-acceleration/internal/domain/loan"
	"credit-acceleration/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: nopIfNil(log)}
}

type createLoanReq struct {
	ApplicantID       string  `json:"applicant_id"         validate:"required,actor"`
	Purpose           string  `json:"purpose"              validate:"max=255"`
	RequestedAmount   float64 `json:"requested_amount"     validate:"gt=0,dec2"`
	InterestRate      float64 `json:"interest_rate"        validate:"gte=0,lte=1"`
	TermMonths        int     `json:"term_months"          validate:"gte=1,lte=600"`
	CreditScore       int     `json:"credit_score"         validate:"gte=300,lte=850"`
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio" validate:"gte=0,lte=5"`
	AnnualIncome      float64 `json:"annual_income"        validate:"gte=0"`
	EmploymentStatus  string  `json:"employment_status"    validate:"omitempty,oneof=employed self_employed contract retired unemployed"`
	PropertyAddress   string  `json:"property_address"     validate:"max=255"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.CreateLoanApplication(c.Request().Context(), loan.CreateLoanInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	v, err := h.uc.GetLoan(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *LoanHandler) SearchLoans(c echo.Context) error {
	var in loan.SearchInput
	var statuses string
	err := echo.QueryParamsBinder(c).
		String("status", &statuses).
		String("applicant_id", &in.ApplicantID).
		Float64("min_amount", &in.MinAmount).
		Float64("max_amount", &in.MaxAmount).
		Int("min_credit_score", &in.MinCreditScore).
		String("recommendation", &in.Recommendation).
		Int("limit", &in.Limit).
		Int("offset", &in.Offset).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query", Code: "bad_request"})
	}
	for _, s := range strings.Split(statuses, ",") {
		if s = strings.TrimSpace(s); s != "" {
			in.Statuses = append(in.Statuses, s)
		}
	}
	res, err := h.uc.SearchLoans(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required,oneof=pending processing approved denied funded active defaulted paid_off"`
	Note   string `json:"note"   validate:"max=512"`
}

func (h *LoanHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.UpdateLoanStatus(c.Request().Context(), c.Param("loan_id"), domain.Status(req.Status), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, l)
}

type paymentReq struct {
	DueDate         time.Time  `json:"due_date"         validate:"required"`
	PaidAt          *time.Time `json:"paid_at"`
	ScheduledAmount float64    `json:"scheduled_amount" validate:"gte=0,dec2"`
	PrincipalAmount float64    `json:"principal_amount" validate:"gte=0,dec2"`
	InterestAmount  float64    `json:"interest_amount"  validate:"gte=0,dec2"`
	EscrowAmount    float64    `json:"escrow_amount"    validate:"gte=0,dec2"`
	Status          string     `json:"status"           validate:"omitempty,oneof=paid late missed"`
}

func (h *LoanHandler) ProcessPayment(c echo.Context) error {
	var req paymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.ProcessLoanPayment(c.Request().Context(), c.Param("loan_id"), loan.PaymentInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *LoanHandler) ArchiveLoan(c echo.Context) error {
	actor, ok, err := actorID(c)
	if !ok {
		return err
	}
	if err := h.uc.ArchiveLoan(c.Request().Context(), c.Param("loan_id"), actor); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	s, err := h.uc.Schedule(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *LoanHandler) LatestAssessment(c echo.Context) error {
	a, err := h.uc.LatestAssessment(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *LoanHandler) PortfolioMetrics(c echo.Context) error {
	m, err := h.uc.GetPortfolioMetrics(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}
