package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serviceshop/internal/app"
	"serviceshop/internal/config"
	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/domain/auth"
	v1 "serviceshop/internal/infrastructure/http/v1"
	"serviceshop/internal/infrastructure/http/v1/handlers"
	"serviceshop/internal/infrastructure/storage/memory"
	"serviceshop/pkg/logger"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	tokens map[string]string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	repos := app.MemoryRepositories(store)
	services, err := app.NewServices(repos, config.Config{
		ConflictRetries: 2,
		RestockRule:     "available <= restock_level",
	})
	require.NoError(t, err)

	signer := auth.NewTokens(auth.NewConfig("test-secret", ""))
	router := v1.NewRouter(v1.RouterConfig{
		Services: services,
		Health:   handlers.NewHealthHandler(store, repos.Name, v1.Version, repos.Stats),
		Logger:   logger.NewNop(),
		Tokens:   signer,
		Mode:     gin.TestMode,
	})

	tokens := make(map[string]string)
	for _, role := range []string{appctx.RoleAdmin, appctx.RoleTechnician, appctx.RoleCustomer} {
		token, _, err := signer.Issue(appctx.UserContext{UserID: role + "-1", Email: role + "@shop.test", Role: role})
		require.NoError(t, err)
		tokens[role] = token
	}

	return &testAPI{t: t, router: router, store: store, tokens: tokens}
}

// do sends a request as role ("" for anonymous) and decodes the JSON body into a map.
func (a *testAPI) do(role, method, path string, body any) (int, map[string]any) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+a.tokens[role])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *testAPI) createItem(name string) int64 {
	a.t.Helper()
	code, body := a.do(appctx.RoleAdmin, http.MethodPost, "/api/v1/inventory/items", map[string]any{
		"name": name, "brand": "Bosch", "category": "brakes", "restockLevel": 2,
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	return int64(body["itemId"].(float64))
}

func (a *testAPI) purchase(itemID int64, date string, qty int64, price string) int64 {
	a.t.Helper()
	code, body := a.do(appctx.RoleAdmin, http.MethodPost, "/api/v1/inventory/purchases", map[string]any{
		"itemId": itemID, "purchaseDate": date, "quantity": qty,
		"buyingPrice": "5.00", "sellingPrice": price, "supplier": "Acme",
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	lot := body["lot"].(map[string]any)
	return int64(lot["stockId"].(float64))
}

func money(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	require.NoError(t, err)
	return d
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do("", http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = api.do("", http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])

	code, body = api.do("", http.MethodGet, "/health/info", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "memory", body["storage"])
	assert.NotContains(t, body, "pool")
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do("", http.MethodGet, "/api/v1/inventory/items", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	code, body = api.do(appctx.RoleCustomer, http.MethodGet, "/api/v1/inventory/items", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["code"])

	code, _ = api.do(appctx.RoleTechnician, http.MethodPost, "/api/v1/inventory/items", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = api.do(appctx.RoleTechnician, http.MethodGet, "/api/v1/inventory/items", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestItems(t *testing.T) {
	api := newTestAPI(t)
	itemID := api.createItem("Brake pad")

	t.Run("duplicate name and brand", func(t *testing.T) {
		code, body := api.do(appctx.RoleAdmin, http.MethodPost, "/api/v1/inventory/items", map[string]any{
			"name": "brake pad", "brand": "BOSCH",
		})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "DUPLICATE_ENTRY", body["code"])
	})

	t.Run("invalid id", func(t *testing.T) {
		code, body := api.do(appctx.RoleAdmin, http.MethodGet, "/api/v1/inventory/items/abc", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	})

	t.Run("update and get", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/inventory/items/%d", itemID)
		code, _ := api.do(appctx.RoleAdmin, http.MethodPut, path, map[string]any{
			"name": "Brake pad front", "brand": "Bosch", "restockLevel": 4,
		})
		require.Equal(t, http.StatusOK, code)

		code, body := api.do(appctx.RoleTechnician, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Brake pad front", body["name"])
		assert.EqualValues(t, 4, body["restockLevel"])
	})

	t.Run("low stock", func(t *testing.T) {
		code, body := api.do(appctx.RoleAdmin, http.MethodGet, "/api/v1/inventory/items/low-stock", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "available <= restock_level", body["rule"])
		assert.Len(t, body["items"], 1)
	})

	t.Run("list", func(t *testing.T) {
		code, body := api.do(appctx.RoleAdmin, http.MethodGet, "/api/v1/inventory/items?search=front&limit=10", nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, body["totalCount"])
	})

	t.Run("delete blocked by stock", func(t *testing.T) {
		api.purchase(itemID, "2026-01-01", 1, "9.00")
		code, body := api.do(appctx.RoleAdmin, http.MethodDelete, fmt.Sprintf("/api/v1/inventory/items/%d", itemID), nil)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "CONFLICT", body["code"])
	})
}

func TestReleaseStock_FIFO(t *testing.T) {
	api := newTestAPI(t)
	itemID := api.createItem("Oil filter")
	first := api.purchase(itemID, "2026-01-01", 5, "10.00")
	second := api.purchase(itemID, "2026-01-02", 5, "10.00")
	third := api.purchase(itemID, "2026-01-03", 5, "10.00")

	releases := fmt.Sprintf("/api/v1/inventory/items/%d/releases", itemID)
	code, body := api.do(appctx.RoleTechnician, http.MethodPost, releases, map[string]any{"quantity": 7})
	require.Equal(t, http.StatusCreated, code, body)

	deductions := body["deductions"].([]any)
	require.Len(t, deductions, 2)
	assert.EqualValues(t, first, deductions[0].(map[string]any)["stockId"])
	assert.EqualValues(t, 5, deductions[0].(map[string]any)["deducted"])
	assert.EqualValues(t, 0, deductions[0].(map[string]any)["remaining"])
	assert.EqualValues(t, second, deductions[1].(map[string]any)["stockId"])
	assert.EqualValues(t, 2, deductions[1].(map[string]any)["deducted"])
	assert.EqualValues(t, 3, deductions[1].(map[string]any)["remaining"])
	batchID := body["batchId"].(string)

	code, body = api.do(appctx.RoleTechnician, http.MethodGet,
		fmt.Sprintf("/api/v1/inventory/items/%d/stock?includeEmpty=true", itemID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 8, body["totalAvailable"])
	lots := body["lots"].([]any)
	require.Len(t, lots, 3)
	assert.EqualValues(t, 0, lots[0].(map[string]any)["availableQty"])
	assert.EqualValues(t, 3, lots[1].(map[string]any)["availableQty"])
	assert.EqualValues(t, third, lots[2].(map[string]any)["stockId"])
	assert.EqualValues(t, 5, lots[2].(map[string]any)["availableQty"])

	t.Run("insufficient by one", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPost, releases, map[string]any{"quantity": 9})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
		details := body["details"].(map[string]any)
		assert.EqualValues(t, 9, details["requested"])
		assert.EqualValues(t, 8, details["available"])
		assert.EqualValues(t, 1, details["shortfall"])
	})

	t.Run("quantity above ceiling", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPost, releases,
			map[string]any{"quantity": int64(math.MaxInt64)})
		assert.Equal(t, http.StatusBadRequest, code)
		fields := body["details"].(map[string]any)["fields"].(map[string]any)
		assert.Equal(t, "max", fields["quantity"])
	})

	t.Run("history", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodGet, releases, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["releases"], 2)
	})

	t.Run("reverse", func(t *testing.T) {
		code, _ := api.do(appctx.RoleAdmin, http.MethodDelete, "/api/v1/inventory/releases/"+batchID, nil)
		require.Equal(t, http.StatusNoContent, code)

		code, body := api.do(appctx.RoleTechnician, http.MethodGet,
			fmt.Sprintf("/api/v1/inventory/items/%d/stock", itemID), nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 15, body["totalAvailable"])

		code, _ = api.do(appctx.RoleAdmin, http.MethodDelete, "/api/v1/inventory/releases/"+batchID, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("unknown item", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPost, "/api/v1/inventory/items/999/releases",
			map[string]any{"quantity": 1})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})
}

func TestStockLotEndpoints(t *testing.T) {
	api := newTestAPI(t)
	itemID := api.createItem("Spark plug")

	code, body := api.do(appctx.RoleAdmin, http.MethodPost, fmt.Sprintf("/api/v1/inventory/items/%d/stock", itemID),
		map[string]any{"quantity": 4, "buyingPrice": "2.00", "sellingPrice": "3.50"})
	require.Equal(t, http.StatusCreated, code, body)
	stockID := int64(body["stockId"].(float64))
	assert.Nil(t, body["purchaseId"])

	path := fmt.Sprintf("/api/v1/inventory/stock/%d", stockID)
	code, body = api.do(appctx.RoleAdmin, http.MethodPatch, path, map[string]any{"sellingPrice": "4.25"})
	require.Equal(t, http.StatusOK, code, body)
	assert.True(t, money(t, body["sellingPrice"]).Equal(decimal.RequireFromString("4.25")))

	code, _ = api.do(appctx.RoleAdmin, http.MethodPatch, path, map[string]any{"sellingPrice": "-1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(appctx.RoleAdmin, http.MethodPatch, "/api/v1/inventory/stock/777", map[string]any{"sellingPrice": "1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPurchases(t *testing.T) {
	api := newTestAPI(t)
	itemID := api.createItem("Wiper")
	api.purchase(itemID, "2026-02-01", 6, "8.00")

	code, body := api.do(appctx.RoleAdmin, http.MethodGet, fmt.Sprintf("/api/v1/inventory/purchases?itemId=%d", itemID), nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	purchaseID := int64(items[0].(map[string]any)["purchaseId"].(float64))
	path := fmt.Sprintf("/api/v1/inventory/purchases/%d", purchaseID)

	code, body = api.do(appctx.RoleAdmin, http.MethodPatch, path, map[string]any{"quantity": 9})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 9, body["lot"].(map[string]any)["availableQty"])

	code, _ = api.do(appctx.RoleAdmin, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = api.do(appctx.RoleAdmin, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(appctx.RoleAdmin, http.MethodPost, "/api/v1/inventory/purchases", map[string]any{
		"itemId": itemID, "quantity": 0, "buyingPrice": "1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	code, body = api.do(appctx.RoleAdmin, http.MethodPost, "/api/v1/inventory/purchases", map[string]any{
		"itemId": itemID, "quantity": 1, "buyingPrice": "1.005", "sellingPrice": "2",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	fields := body["details"].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "money", fields["buyingPrice"])
}

func TestServiceRecordsAndInvoice(t *testing.T) {
	api := newTestAPI(t)
	itemID := api.createItem("Brake disc")
	stockID := api.purchase(itemID, "2026-03-01", 10, "12.50")

	code, body := api.do(appctx.RoleTechnician, http.MethodPost, "/api/v1/service-records", map[string]any{
		"vehicleId":   "VIN-1",
		"description": "brake job",
		"partsUsed":   []map[string]any{{"stockId": stockID, "quantityUsed": 2}},
	})
	require.Equal(t, http.StatusCreated, code, body)
	record := body["record"].(map[string]any)
	serviceID := int64(record["serviceId"].(float64))
	assert.Equal(t, "technician-1", record["technicianId"])

	partsPath := fmt.Sprintf("/api/v1/service-records/%d/parts", serviceID)

	t.Run("merge adds to existing usage", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPatch, partsPath, map[string]any{
			"partsUsed": []map[string]any{{"stockId": stockID, "quantityUsed": 1}},
		})
		require.Equal(t, http.StatusOK, code, body)
		parts := body["partsUsed"].([]any)
		require.Len(t, parts, 1)
		assert.EqualValues(t, 3, parts[0].(map[string]any)["quantityUsed"])
	})

	t.Run("attach beyond stock fails", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPost, partsPath, map[string]any{
			"partsUsed": []map[string]any{{"stockId": stockID, "quantityUsed": 8}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	})

	invoicePath := fmt.Sprintf("/api/v1/service-records/%d/invoice", serviceID)

	t.Run("invoice", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPost, invoicePath, map[string]any{"serviceCharge": "40.00"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, fmt.Sprintf("INV-%06d", serviceID), body["invoiceId"])
		assert.True(t, money(t, body["partsTotalPrice"]).Equal(decimal.RequireFromString("37.50")))
		assert.True(t, money(t, body["totalPrice"]).Equal(decimal.RequireFromString("77.50")))
		lines := body["partsUsed"].([]any)
		require.Len(t, lines, 1)
		assert.Equal(t, "Brake disc", lines[0].(map[string]any)["itemName"])

		code, body = api.do(appctx.RoleCustomer, http.MethodGet, invoicePath, nil)
		require.Equal(t, http.StatusOK, code)
		assert.True(t, money(t, body["totalPrice"]).Equal(decimal.RequireFromString("77.50")))
	})

	t.Run("replace then invoice recomputes", func(t *testing.T) {
		code, body := api.do(appctx.RoleTechnician, http.MethodPut, partsPath, map[string]any{
			"partsUsed": []map[string]any{{"stockId": stockID, "quantityUsed": 1}},
		})
		require.Equal(t, http.StatusOK, code, body)

		code, body = api.do(appctx.RoleTechnician, http.MethodPost, invoicePath, map[string]any{"serviceCharge": "40.00"})
		require.Equal(t, http.StatusOK, code)
		assert.True(t, money(t, body["totalPrice"]).Equal(decimal.RequireFromString("52.50")))
		assert.Equal(t, 1, api.store.InvoiceCount())
	})

	t.Run("delete restores stock", func(t *testing.T) {
		code, _ := api.do(appctx.RoleTechnician, http.MethodDelete, fmt.Sprintf("/api/v1/service-records/%d", serviceID), nil)
		require.Equal(t, http.StatusNoContent, code)

		code, body := api.do(appctx.RoleTechnician, http.MethodGet,
			fmt.Sprintf("/api/v1/inventory/items/%d/stock", itemID), nil)
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 10, body["totalAvailable"])

		code, _ = api.do(appctx.RoleCustomer, http.MethodGet, invoicePath, nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("audit trail", func(t *testing.T) {
		code, body := api.do(appctx.RoleAdmin, http.MethodGet,
			fmt.Sprintf("/api/v1/audit/service_record/%d", serviceID), nil)
		require.Equal(t, http.StatusOK, code)
		entries := body["entries"].([]any)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.NotEmpty(t, e.(map[string]any)["requestId"], "audit rows carry the request id")
		}

		code, _ = api.do(appctx.RoleTechnician, http.MethodGet,
			fmt.Sprintf("/api/v1/audit/service_record/%d", serviceID), nil)
		assert.Equal(t, http.StatusForbidden, code)

		code, _ = api.do(appctx.RoleAdmin, http.MethodGet, "/api/v1/audit/bogus/1", nil)
		assert.Equal(t, http.StatusBadRequest, code)

		code, body = api.do(appctx.RoleAdmin, http.MethodGet,
			fmt.Sprintf("/api/v1/audit/service_record/%d?limit=0", serviceID), nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
	})
}
