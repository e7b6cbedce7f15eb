package handler

import (
	"net/http"

	"order-bot/project/dto"
	"order-bot/project/service"

	"github.com/rs/zerolog/hlog"
)

// AnalyticsHandler はステータス別の合計を返します
type AnalyticsHandler struct {
	auth   InitDataAuthenticator
	orders service.OrderService
}

// NewAnalyticsHandler は集計ハンドラーを作成します
func NewAnalyticsHandler(auth InitDataAuthenticator, orders service.OrderService) *AnalyticsHandler {
	return &AnalyticsHandler{
		auth:   auth,
		orders: orders,
	}
}

// ServeHTTP は /api/analytics エンドポイント
func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req dto.AnalyticsRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.InitData == "" {
		writeError(w, http.StatusBadRequest, errMissingInitData)
		return
	}

	session, ok := authenticate(w, r, h.auth, req.InitData)
	if !ok {
		return
	}

	a, err := h.orders.Analytics(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", userID(session)).Msg("analytics failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AnalyticsResponse{
		Success:              true,
		InTransitPaid:        service.FormatRub(a.InTransitPaid),
		InPvzPaid:            service.FormatRub(a.InPvzPaid),
		ReceivedTotal:        service.FormatRub(a.ReceivedTotal),
		SentTotal:            service.FormatRub(a.SentTotal),
		MarketWarehouseTotal: service.FormatRub(a.MarketWarehouseTotal),
		TotalAmount:          service.FormatRub(a.TotalAmount),
	})
}
