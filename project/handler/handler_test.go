package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"order-bot/project/domain"
	"order-bot/project/dto"
	"order-bot/project/infrastructure/httpsec"
	"order-bot/project/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

// fakeOrderService はメモリ上の注文を扱う OrderService です
type fakeOrderService struct {
	orders    []domain.Order
	added     []domain.Order
	addSource string
	err       error
}

func (f *fakeOrderService) List(_ context.Context, limit int) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && limit < len(f.orders) {
		return f.orders[len(f.orders)-limit:], nil
	}
	return f.orders, nil
}

func (f *fakeOrderService) Add(_ context.Context, source string, orders []domain.Order) error {
	if f.err != nil {
		return f.err
	}
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	f.addSource = source
	f.added = append(f.added, orders...)
	return nil
}

func (f *fakeOrderService) Analytics(_ context.Context) (*service.Analytics, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := service.ComputeAnalytics(f.orders)
	return &a, nil
}

func (f *fakeOrderService) Stats(_ context.Context) (*service.Stats, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := service.ComputeStats(f.orders)
	return &st, nil
}

func validInitData() string {
	return httpsec.SignInitData(map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAH",
		"user":      `{"id":42,"first_name":"Ivan"}`,
	}, []byte(testBotToken))
}

func newAuth() *httpsec.Authenticator {
	return httpsec.NewAuthenticator(testBotToken, 0, nil)
}

func post(t *testing.T, h http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sampleOrders() []domain.Order {
	return []domain.Order{
		{
			domain.FieldShop:        "Wildberries",
			domain.FieldOrderNumber: "1",
			domain.FieldAmount:      "1000",
			domain.FieldProfit:      "100",
			domain.FieldStatus:      "В пути",
			domain.FieldPayment:     "Оплачен",
			domain.FieldAccount:     "secret-account",
		},
		{
			domain.FieldShop:        "Ozon",
			domain.FieldOrderNumber: "2",
			domain.FieldAmount:      "500",
			domain.FieldStatus:      "Получен",
		},
	}
}

func TestOrdersHandler(t *testing.T) {
	t.Run("valid initData returns projected orders", func(t *testing.T) {
		svc := &fakeOrderService{orders: sampleOrders()}
		rec := post(t, NewOrdersHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData()})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.OrdersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Len(t, resp.Orders, 2)
		assert.Equal(t, "Wildberries", resp.Orders[0][domain.FieldShop])
		assert.Equal(t, "", resp.Orders[1][domain.FieldProfit])
		_, hasAccount := resp.Orders[0][domain.FieldAccount]
		assert.False(t, hasAccount)
		assert.Len(t, resp.Orders[0], len(domain.SummaryFields))
	})

	t.Run("limit", func(t *testing.T) {
		svc := &fakeOrderService{orders: sampleOrders()}
		rec := post(t, NewOrdersHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData(), "limit": 1})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.OrdersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, "Ozon", resp.Orders[0][domain.FieldShop])
	})

	t.Run("tampered initData is forbidden", func(t *testing.T) {
		tampered := validInitData() + "&extra=1"
		rec := post(t, NewOrdersHandler(newAuth(), &fakeOrderService{}), map[string]interface{}{"initData": tampered})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		resp := decodeError(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, "invalid initData", resp.Error)
	})

	t.Run("other secret is forbidden", func(t *testing.T) {
		foreign := httpsec.SignInitData(map[string]string{"auth_date": "1"}, []byte("other"))
		rec := post(t, NewOrdersHandler(newAuth(), &fakeOrderService{}), map[string]interface{}{"initData": foreign})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("GET is not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		NewOrdersHandler(newAuth(), &fakeOrderService{}).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("missing initData", func(t *testing.T) {
		rec := post(t, NewOrdersHandler(newAuth(), &fakeOrderService{}), map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("broken JSON", func(t *testing.T) {
		rec := post(t, NewOrdersHandler(newAuth(), &fakeOrderService{}), "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		svc := &fakeOrderService{err: errors.New("sheets down")}
		rec := post(t, NewOrdersHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData()})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, "sheets down", resp.Error)
	})
}

func TestAddOrderHandler(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		svc := &fakeOrderService{}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{
			"initData": validInitData(),
			"data":     map[string]interface{}{"Магазин": "WB", "Сумма": 1200},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.AddOrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, 1, resp.Added)
		require.Len(t, svc.added, 1)
		assert.Equal(t, "1200", svc.added[0][domain.FieldAmount])
		assert.Equal(t, service.SourceWeb, svc.addSource)
	})

	t.Run("array", func(t *testing.T) {
		svc := &fakeOrderService{}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{
			"initData": validInitData(),
			"data": []map[string]string{
				{"Магазин": "WB"},
				{"Магазин": "Ozon"},
			},
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, svc.added, 2)
	})

	t.Run("missing data", func(t *testing.T) {
		svc := &fakeOrderService{}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.added)
	})

	t.Run("missing initData", func(t *testing.T) {
		rec := post(t, NewAddOrderHandler(newAuth(), &fakeOrderService{}), map[string]interface{}{
			"data": map[string]string{"Магазин": "WB"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty record is invalid", func(t *testing.T) {
		svc := &fakeOrderService{}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{
			"initData": validInitData(),
			"data":     map[string]string{},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.added)
	})

	t.Run("tampered initData does not write", func(t *testing.T) {
		svc := &fakeOrderService{}
		raw := validInitData()
		tampered := raw[:len(raw)-1] + "0"
		if raw[len(raw)-1] == '0' {
			tampered = raw[:len(raw)-1] + "1"
		}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{
			"initData": tampered,
			"data":     map[string]string{"Магазин": "WB"},
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, svc.added)
	})

	t.Run("append failure", func(t *testing.T) {
		svc := &fakeOrderService{err: fmt.Errorf("sheets: 追記失敗: %w", errors.New("quota exceeded"))}
		rec := post(t, NewAddOrderHandler(newAuth(), svc), map[string]interface{}{
			"initData": validInitData(),
			"data":     map[string]string{"Магазин": "WB"},
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "quota exceeded")
	})
}

func TestAnalyticsHandler(t *testing.T) {
	t.Run("formats sums", func(t *testing.T) {
		svc := &fakeOrderService{orders: sampleOrders()}
		rec := post(t, NewAnalyticsHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData()})

		require.Equal(t, http.StatusOK, rec.Code)
		var resp dto.AnalyticsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, service.FormatRub(1000), resp.InTransitPaid)
		assert.Equal(t, service.FormatRub(500), resp.ReceivedTotal)
		assert.Equal(t, service.FormatRub(1500), resp.TotalAmount)
		assert.Equal(t, service.FormatRub(0), resp.SentTotal)
	})

	t.Run("forbidden", func(t *testing.T) {
		rec := post(t, NewAnalyticsHandler(newAuth(), &fakeOrderService{}), map[string]interface{}{"initData": "hash=abc"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("backend failure", func(t *testing.T) {
		svc := &fakeOrderService{err: errors.New("boom")}
		rec := post(t, NewAnalyticsHandler(newAuth(), svc), map[string]interface{}{"initData": validInitData()})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
