package catalog_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dialdesk/go-console/catalog"
	"github.com/dialdesk/go-console/internal/utils"
	"github.com/dialdesk/go-console/query"
	"github.com/dialdesk/go-console/transport"
)

type staticTokens struct{}

func (staticTokens) Token() string { return "test-token" }

func newTestClient(t *testing.T, handler http.Handler) (*catalog.Client, *query.Cache) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	pipeline, err := transport.NewPipeline(server.URL, staticTokens{}, transport.WithRetryCount(0))
	require.NoError(t, err)

	cache := query.NewCache()
	t.Cleanup(cache.Close)

	client, err := catalog.New(pipeline, cache)
	require.NoError(t, err)
	return client, cache
}

func TestPatchProductSendsOnlySetFields(t *testing.T) {
	var rawBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /products/prod-1", func(w http.ResponseWriter, r *http.Request) {
		rawBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prod-1","name":"Headset Pro","priceCents":4999}`))
	})
	client, _ := newTestClient(t, mux)

	patch := catalog.ProductPatch{
		Name:       utils.Ptr("Headset Pro"),
		PriceCents: utils.Ptr(int64(4999)),
	}
	updated, err := client.PatchProduct(context.Background(), "prod-1", patch)
	require.NoError(t, err)
	require.Equal(t, utils.Value(patch.Name), updated.Name)

	var gotBody map[string]any
	require.NoError(t, json.Unmarshal(rawBody, &gotBody))
	require.Len(t, gotBody, 2)
	require.Equal(t, "Headset Pro", gotBody["name"])
	require.NotContains(t, gotBody, "active")
}

func TestPatchProductInvalidatesCachedReads(t *testing.T) {
	var productHits, listHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/prod-1", func(w http.ResponseWriter, _ *http.Request) {
		productHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prod-1","name":"Headset"}`))
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		listHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":"prod-1","name":"Headset"}],"total":1}`))
	})
	mux.HandleFunc("PATCH /products/prod-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prod-1","name":"Headset Pro"}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Product(context.Background(), "prod-1")
	require.NoError(t, err)
	_, err = client.Products(context.Background(), "", 10, 0)
	require.NoError(t, err)

	_, err = client.PatchProduct(context.Background(), "prod-1", catalog.ProductPatch{
		Name: utils.Ptr("Headset Pro"),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return productHits.Load() == 2 && listHits.Load() == 2
	}, time.Second, 5*time.Millisecond)
}
