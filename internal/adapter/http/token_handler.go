package http

import (
	"net/http"

	"credit-acceleration/internal/usecase/tokenization"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type TokenHandler struct {
	uc  *tokenization.Usecase
	log *zap.Logger
}

func NewTokenHandler(uc *tokenization.Usecase, log *zap.Logger) *TokenHandler {
	return &TokenHandler{uc: uc, log: nopIfNil(log)}
}

type tokenizeReq struct {
	TotalSupply   int64   `json:"total_supply"    validate:"gte=0"`
	PricePerToken float64 `json:"price_per_token" validate:"gte=0"`
	Symbol        string  `json:"symbol"          validate:"max=16"`
}

func (h *TokenHandler) Tokenize(c echo.Context) error {
	var req tokenizeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	t, err := h.uc.TokenizeLoan(c.Request().Context(), c.Param("loan_id"), tokenization.TokenizeInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TokenHandler) GetToken(c echo.Context) error {
	v, err := h.uc.GetToken(c.Request().Context(), c.Param("token_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

type purchaseReq struct {
	BuyerID string `json:"buyer_id" validate:"required,actor"`
	Tokens  int64  `json:"tokens"   validate:"gt=0"`
}

func (h *TokenHandler) Purchase(c echo.Context) error {
	var req purchaseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.PurchaseTokens(c.Request().Context(), c.Param("token_id"), tokenization.PurchaseInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type listingReq struct {
	SellerID      string  `json:"seller_id"       validate:"required,actor"`
	TokensForSale int64   `json:"tokens_for_sale" validate:"gt=0"`
	AskPrice      float64 `json:"ask_price"       validate:"gt=0"`
	ExpiresInDays int     `json:"expires_in_days" validate:"gte=0,lte=365"`
}

func (h *TokenHandler) CreateListing(c echo.Context) error {
	var req listingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.CreateSecondaryListing(c.Request().Context(), c.Param("token_id"), tokenization.ListingInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *TokenHandler) GetListing(c echo.Context) error {
	v, err := h.uc.GetListing(c.Request().Context(), c.Param("listing_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *TokenHandler) CancelListing(c echo.Context) error {
	seller, ok, err := actorID(c)
	if !ok {
		return err
	}
	l, err := h.uc.CancelListing(c.Request().Context(), c.Param("listing_id"), seller)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, l)
}

type bidReq struct {
	BidderID      string  `json:"bidder_id"       validate:"required,actor"`
	Tokens        int64   `json:"tokens"          validate:"gt=0"`
	PricePerToken float64 `json:"price_per_token" validate:"gt=0"`
}

func (h *TokenHandler) PlaceBid(c echo.Context) error {
	var req bidReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	b, err := h.uc.PlaceBid(c.Request().Context(), c.Param("listing_id"), tokenization.BidInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *TokenHandler) AcceptBid(c echo.Context) error {
	res, err := h.uc.AcceptBid(c.Request().Context(), c.Param("bid_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
