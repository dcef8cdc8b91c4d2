package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/possum/internal/pos"
)

func TestFetchCatalog_DecodesProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"p1","name":"Espresso","price":2.50,"category":"coffee","stock":10},
			{"id":"p2","name":"Oat Milk","price":0.60,"category":"extras","stock":40,"image":"https://cdn/o.png"}
		]`))
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, "secret")
	products, err := g.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("2.50")), "price = %s", products[0].Price)
	assert.Equal(t, 40, products[1].Stock)
	assert.Equal(t, "https://cdn/o.png", products[1].Image)
}

func TestFetchCatalog_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, "")
	_, err := g.FetchCatalog(context.Background())
	require.Error(t, err)
	assert.True(t, IsRemote(err), "want RemoteError, got %T", err)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
}

func TestFetchCatalog_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Closed server: transport-level failure.

	g := NewHTTP(srv.URL, "")
	_, err := g.FetchCatalog(context.Background())
	require.Error(t, err)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 0, re.Status, "transport failures carry no HTTP status")
}

func TestInsertTransaction_SendsMergeDuplicates(t *testing.T) {
	var gotPrefer string
	var gotBody transactionDTO
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		gotPrefer = r.Header.Get("Prefer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, "")
	tx := pos.Transaction{
		ID:   "t1",
		Date: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		Items: []pos.LineItem{{
			ProductID: "p1", Name: "Espresso",
			Price: decimal.RequireFromString("2.50"), Category: "coffee", Stock: 10, Quantity: 2,
		}},
		Subtotal: decimal.RequireFromString("5.00"),
		Tax:      decimal.RequireFromString("0.50"),
		Total:    decimal.RequireFromString("5.50"),
		Status:   pos.TxCompleted,
	}

	require.NoError(t, g.InsertTransaction(context.Background(), tx))
	assert.Equal(t, "resolution=merge-duplicates", gotPrefer)
	assert.Equal(t, "t1", gotBody.ID)
	assert.Equal(t, json.Number("5.50"), gotBody.Total)
	assert.Len(t, gotBody.Items, 1)
	assert.Equal(t, 2, gotBody.Items[0].Quantity)
}

func TestInsertTransaction_ConflictIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, "")
	err := g.InsertTransaction(context.Background(), pos.Transaction{ID: "t1"})
	assert.NoError(t, err, "duplicate insert must be idempotent")
}

func TestInsertTransaction_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, "")
	err := g.InsertTransaction(context.Background(), pos.Transaction{ID: "t1"})
	require.Error(t, err)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusBadGateway, re.Status)
}
