package http

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"credit-acceleration/internal/adapter/middleware"
	"credit-acceleration/internal/adapter/valuation"
	"credit-acceleration/internal/testutil/harness"
	"credit-acceleration/internal/usecase/assessment"
	"credit-acceleration/internal/usecase/collateral"
	"credit-acceleration/internal/usecase/escrow"
	"credit-acceleration/internal/usecase/guarantee"
	"credit-acceleration/internal/usecase/loan"
	"credit-acceleration/internal/usecase/tokenization"

	"github.com/labstack/echo/v4"
)

type testAPI struct {
	e *echo.Echo
	h *harness.Harness
}

// newTestAPI serves every route against an in-memory database. Idempotency
// is left out; it has its own tests.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	h := harness.New(t)
	assess := assessment.NewUsecase(h.Runner, h.Locker, assessment.NewEngine(assessment.DefaultEngineConfig()), nil, nil, assessment.Config{})
	t.Cleanup(assess.Close)

	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	Register(e, Handlers{
		Health:       NewHandler(),
		Loans:        NewLoanHandler(loan.NewUsecase(h.Runner, nil), nil),
		Assessments:  NewAssessmentHandler(assess, nil),
		Collateral:   NewCollateralHandler(collateral.NewUsecase(h.Runner, valuation.NewStub(h.Clock), nil), nil),
		Tokens:       NewTokenHandler(tokenization.NewUsecase(h.Runner, tokenization.Config{}, nil), nil),
		Escrow:       NewEscrowHandler(escrow.NewUsecase(h.Runner, nil), nil),
		Guarantees:   NewGuaranteeHandler(guarantee.NewUsecase(h.Runner, nil, nil), nil),
		Notification: NewNotificationHandler(h.Dispatcher, nil),
	})
	return &testAPI{e: e, h: h}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	switch b := body.(type) {
	case nil:
		r = bytes.NewReader(nil)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, status, rec.Body.String())
	}
}

func wantCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	wantStatus(t, rec, status)
	er := decode[ErrorResponse](t, rec)
	if er.Code != code {
		t.Fatalf("code = %q, want %q; body=%s", er.Code, code, rec.Body.String())
	}
	return er
}

var actorHeader = []string{middleware.HeaderActorID, "ops-1"}
