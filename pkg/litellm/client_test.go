package litellm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
	"github.com/ogulcanaydogan/liteclient/pkg/litellm"
	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

const testAPIKey = "sk-test"

func newTestClient(t *testing.T, handler http.Handler) *litellm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := litellm.NewClient(litellm.Config{BaseURL: server.URL, APIKey: testAPIKey})
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := litellm.NewClient(litellm.Config{})
	assert.Error(t, err)

	_, err = litellm.NewClient(litellm.Config{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := litellm.NewClient(litellm.Config{BaseURL: "http://localhost:4000/"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestListCustomers_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customer/list", r.URL.Path)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"user_id": "123", "spend": 100, "litellm_budget_table": map[string]any{"max_budget": 200}},
		})
	}))

	customers, err := c.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Customer{
		{UserID: "123", Spend: 100, MaxBudget: model.Float(200)},
	}, customers)
}

func TestListCustomers_FlattensBudgetTablePreservingOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"user_id": "a", "spend": 1, "litellm_budget_table": nil},
			{"user_id": "b", "spend": 2, "litellm_budget_table": map[string]any{"max_budget": 50}},
			{"user_id": "c", "spend": 3},
			{"user_id": "d", "spend": 4, "litellm_budget_table": map[string]any{"max_budget": nil}},
		})
	}))

	customers, err := c.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, customers, 4)

	assert.Equal(t, "a", customers[0].UserID)
	assert.Nil(t, customers[0].MaxBudget)
	assert.Equal(t, "b", customers[1].UserID)
	require.NotNil(t, customers[1].MaxBudget)
	assert.Equal(t, 50.0, *customers[1].MaxBudget)
	assert.Equal(t, "c", customers[2].UserID)
	assert.Nil(t, customers[2].MaxBudget)
	assert.Equal(t, "d", customers[3].UserID)
	assert.Nil(t, customers[3].MaxBudget)
}

func TestListCustomers_EmptyList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []any{})
	}))

	customers, err := c.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestListCustomers_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListCustomers(context.Background())
	require.Error(t, err)

	var upstream *apierr.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "listCustomers", upstream.Op)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Equal(t, "Failed to list customers.", upstream.Message)
}

func TestListCustomers_UsesUpstreamErrorMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "Authentication Error, invalid key", "type": "auth_error"},
		})
	}))

	_, err := c.ListCustomers(context.Background())
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.Equal(t, "Authentication Error, invalid key", err.Error())
}

func TestListCustomers_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := litellm.NewClient(litellm.Config{BaseURL: url})
	require.NoError(t, err)

	_, err = c.ListCustomers(context.Background())
	var upstream *apierr.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 0, upstream.StatusCode)
	assert.Equal(t, "Failed to list customers.", upstream.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestListCustomers_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"object instead of array", `{"customers": []}`},
		{"numeric user id", `[{"user_id": 123, "spend": 10}]`},
		{"missing user id", `[{"spend": 10}]`},
		{"missing spend", `[{"user_id": "a"}]`},
		{"negative spend", `[{"user_id": "a", "spend": -1}]`},
		{"null body", `null`},
		{"empty body", ``},
		{"trailing garbage", `[{"user_id": "a", "spend": 1}] garbage`},
		{"two values", `[] []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.ListCustomers(context.Background())
			require.Error(t, err)
			assert.Equal(t, apierr.KindIntegration, apierr.KindOf(err))
			assert.Equal(t, "Received unexpected data while listing customers.", err.Error())
		})
	}
}

func TestGetCustomerInfo_NoBudgetTable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customer/info", r.URL.Path)
		if r.URL.Query().Get("end_user_id") != "123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user_id":              "123",
			"spend":                100,
			"litellm_budget_table": nil,
		})
	}))

	info, err := c.GetCustomerInfo(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, &model.CustomerDetail{
		UserID:    "123",
		Spend:     100,
		MaxBudget: nil,
		Budgets:   []model.Budget{},
	}, info)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"123","spend":100,"max_budget":null,"budgets":[]}`, string(data))
}

func TestGetCustomerInfo_SynthesizesBudget(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user_id": "user-1",
			"spend":   12.5,
			"litellm_budget_table": map[string]any{
				"budget_id":  "budget-1",
				"max_budget": 100,
			},
		})
	}))

	info, err := c.GetCustomerInfo(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, info.MaxBudget)
	assert.Equal(t, 100.0, *info.MaxBudget)
	assert.Equal(t, []model.Budget{
		{BudgetID: "budget-1", MaxBudget: model.Float(100), Spend: 12.5},
	}, info.Budgets)
}

func TestGetCustomerInfo_BudgetTableWithoutID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user_id":              "user-1",
			"spend":                1,
			"litellm_budget_table": map[string]any{"max_budget": 10},
		})
	}))

	_, err := c.GetCustomerInfo(context.Background(), "user-1")
	assert.Equal(t, apierr.KindIntegration, apierr.KindOf(err))
	assert.Equal(t, "Received unexpected data while fetching customer info.", err.Error())
}

func TestGetCustomerInfo_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetCustomerInfo(context.Background(), "404")
	require.Error(t, err)
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.Equal(t, "Failed to get customer info.", err.Error())
	assert.True(t, apierr.IsNotFound(err))
}

func TestGetCustomerInfo_EmptyIDNeverCallsUpstream(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	_, err := c.GetCustomerInfo(context.Background(), "")
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestCreateBudget_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/budget/new", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"budget_id":      "budget-1",
			"max_budget":     100.0,
			"currency":       "USD",
			"reset_interval": "monthly",
		}, body)

		writeJSON(t, w, http.StatusOK, map[string]any{"budget_id": "budget-1", "max_budget": 100})
	}))

	resp, err := c.CreateBudget(context.Background(), model.BudgetCreateRequest{
		BudgetID:      "budget-1",
		MaxBudget:     100,
		Currency:      "USD",
		ResetInterval: "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, &model.BudgetResponse{BudgetID: "budget-1", MaxBudget: model.Float(100)}, resp)
}

func TestCreateBudget_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.CreateBudget(context.Background(), model.BudgetCreateRequest{
		BudgetID: "budget-1", MaxBudget: 100, Currency: "USD", ResetInterval: "monthly",
	})
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.Equal(t, "Failed to create budget.", err.Error())
}

func TestCreateBudget_InvalidRequestNotSent(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))

	_, err := c.CreateBudget(context.Background(), model.BudgetCreateRequest{MaxBudget: 100})
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestCreateBudget_RepeatedCallsAllForwarded(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"budget_id": "budget-1", "max_budget": 100})
	}))

	req := model.BudgetCreateRequest{BudgetID: "budget-1", MaxBudget: 100, Currency: "USD", ResetInterval: "monthly"}
	for range 3 {
		_, err := c.CreateBudget(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestAssignBudget_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customer/new", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"user_id": "user-1", "budget_id": "budget-1"}, body)

		writeJSON(t, w, http.StatusOK, map[string]any{"budget_id": "budget-1", "max_budget": 100})
	}))

	resp, err := c.AssignBudget(context.Background(), "user-1", "budget-1")
	require.NoError(t, err)
	assert.Equal(t, "budget-1", resp.BudgetID)
}

func TestAssignBudget_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.AssignBudget(context.Background(), "123", "budget-1")
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.Equal(t, "Failed to assign budget.", err.Error())
}

func TestAssignBudget_UnexpectedResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"user_id": "user-1"})
	}))

	_, err := c.AssignBudget(context.Background(), "user-1", "budget-1")
	assert.Equal(t, apierr.KindIntegration, apierr.KindOf(err))
	assert.Equal(t, "Received unexpected data while assigning budget.", err.Error())
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	c, err := litellm.NewClient(litellm.Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListCustomers(context.Background())
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, []any{})
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListCustomers(ctx)
	assert.Equal(t, apierr.KindUpstream, apierr.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}
