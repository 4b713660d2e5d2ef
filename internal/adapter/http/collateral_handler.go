package http

import (
	"net/http"

	"credit-acceleration/internal/usecase/collateral"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CollateralHandler struct {
	uc  *collateral.Usecase
	log *zap.Logger
}

func NewCollateralHandler(uc *collateral.Usecase, log *zap.Logger) *CollateralHandler {
	return &CollateralHandler{uc: uc, log: nopIfNil(log)}
}

type addAssetReq struct {
	Type           string  `json:"type"            validate:"required,oneof=real_estate vehicle equipment securities cash other"`
	Description    string  `json:"description"     validate:"max=255"`
	Address        string  `json:"address"         validate:"max=255"`
	EstimatedValue float64 `json:"estimated_value" validate:"gte=0,dec2"`
	LienPosition   int     `json:"lien_position"   validate:"gte=1"`
}

func (h *CollateralHandler) AddAsset(c echo.Context) error {
	var req addAssetReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.AddCollateralAsset(c.Request().Context(), c.Param("loan_id"), collateral.AddAssetInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type valuationReq struct {
	NewValue float64 `json:"new_value" validate:"gte=0,dec2"`
	Verified bool    `json:"verified"`
}

func (h *CollateralHandler) UpdateValuation(c echo.Context) error {
	var req valuationReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.UpdateAssetValuation(c.Request().Context(), c.Param("asset_id"), req.NewValue, req.Verified)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CollateralHandler) RemoveAsset(c echo.Context) error {
	res, err := h.uc.RemoveCollateralAsset(c.Request().Context(), c.Param("asset_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CollateralHandler) Revalue(c echo.Context) error {
	res, err := h.uc.RevalueAsset(c.Request().Context(), c.Param("asset_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CollateralHandler) Comparables(c echo.Context) error {
	r, err := h.uc.GetComparables(c.Request().Context(), c.QueryParam("address"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}
