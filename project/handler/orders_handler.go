package handler

import (
	"net/http"

	"order-bot/project/domain"
	"order-bot/project/dto"
	"order-bot/project/service"

	"github.com/rs/zerolog/hlog"
)

// OrdersHandler は Mini App に注文一覧を返します
type OrdersHandler struct {
	auth   InitDataAuthenticator
	orders service.OrderService
}

// NewOrdersHandler は注文一覧ハンドラーを作成します
func NewOrdersHandler(auth InitDataAuthenticator, orders service.OrderService) *OrdersHandler {
	return &OrdersHandler{
		auth:   auth,
		orders: orders,
	}
}

// ServeHTTP は /api/orders エンドポイント
func (h *OrdersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req dto.OrdersRequest
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

	orders, err := h.orders.List(r.Context(), req.Limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", userID(session)).Msg("orders read failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// 一覧に必要な列だけを返す
	projected := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		projected = append(projected, o.Project(domain.SummaryFields))
	}

	writeJSON(w, http.StatusOK, dto.OrdersResponse{Success: true, Orders: projected})
}
