package rating

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aquamarinepk/aqm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAPIClientWith(server.Client(), server.URL+"/", nil)
}

func TestNewAPIClientNilConfig(t *testing.T) {
	if _, err := NewAPIClient(nil, nil); err == nil {
		t.Error("NewAPIClient() with nil config should return error")
	}
}

func TestNewAPIClientMissingURL(t *testing.T) {
	if _, err := NewAPIClient(aqm.NewConfig(), nil); err == nil {
		t.Error("NewAPIClient() without backend url should return error")
	}
}

func TestAPIClientGetOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "enveloped", body: `{"data":{"_id":"ord1","status":"completed","tableNumber":7,"items":[{"id":"burger1-abc","name":"Burger","price":12.5}]}}`},
		{name: "bare", body: `{"_id":"ord1","status":"completed","tableNumber":"7","items":[{"id":"burger1-abc","name":"Burger","price":12.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("Method = %s, want GET", r.Method)
				}
				if r.URL.Path != "/api/orders/ord1" {
					t.Errorf("Path = %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			order, err := client.GetOrder(context.Background(), "ord1")
			if err != nil {
				t.Fatalf("GetOrder() error = %v", err)
			}
			if order.Key() != "ord1" {
				t.Errorf("Key() = %q, want ord1", order.Key())
			}
			if !order.IsCompleted() {
				t.Error("expected completed order")
			}
			if order.TableNumber.String() != "7" {
				t.Errorf("TableNumber = %q, want 7", order.TableNumber)
			}
			if len(order.Items) != 1 || order.Items[0].BaseID() != "burger1" {
				t.Errorf("unexpected items: %+v", order.Items)
			}
		})
	}
}

func TestAPIClientRatedProducts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]bool
	}{
		{name: "flatMap", body: `{"burger1":true,"fries2":false}`, want: map[string]bool{"burger1": true}},
		{name: "nested", body: `{"data":{"ratedProducts":{"burger1-abc":true}}}`, want: map[string]bool{"burger1": true}},
		{name: "empty", body: `{}`, want: map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/ratings/order/ord1/products" {
					t.Errorf("Path = %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			})

			got, err := client.RatedProducts(context.Background(), "ord1")
			if err != nil {
				t.Fatalf("RatedProducts() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("RatedProducts() = %v, want %v", got, tt.want)
			}
			for id := range tt.want {
				if !got[id] {
					t.Errorf("expected %s rated", id)
				}
			}
		})
	}
}

func TestAPIClientSubmitRating(t *testing.T) {
	var received RatingSubmission
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ratings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"r1"}}`))
	})

	err := client.SubmitRating(context.Background(), RatingSubmission{ProductID: "burger1", OrderID: "ord1", Rating: 5})
	if err != nil {
		t.Fatalf("SubmitRating() error = %v", err)
	}
	if received.ProductID != "burger1" || received.OrderID != "ord1" || received.Rating != 5 {
		t.Errorf("unexpected body: %+v", received)
	}
}

func TestAPIClientErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "rateLimited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantErr: ErrRateLimited},
		{name: "productNotFound", status: http.StatusNotFound, body: `{"error":"Product not found"}`, wantErr: ErrProductNotFound},
		{name: "orderAlreadyRated", status: http.StatusBadRequest, body: `{"message":"Order has already been rated"}`, wantErr: ErrOrderAlreadyRated},
		{name: "productAlreadyRated", status: http.StatusConflict, body: `{"error":{"message":"This product was already rated"}}`, wantErr: ErrProductAlreadyRated},
		{name: "orderNotFound", status: http.StatusNotFound, body: `{"error":"Order not found"}`, wantErr: ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.SubmitRating(context.Background(), RatingSubmission{ProductID: "p", OrderID: "o", Rating: 3})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitRating() error = %v, want %v", err, tt.wantErr)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
		})
	}
}

func TestAPIClientUnclassifiedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal failure"))
	})

	_, err := client.GetProduct(context.Background(), "burger1")
	if err == nil {
		t.Fatal("GetProduct() with 500 should return error")
	}
	if errors.Is(err, ErrProductNotFound) || IsAlreadyRated(err) || errors.Is(err, ErrRateLimited) {
		t.Errorf("unexpected classification for %v", err)
	}
}

func TestAPIClientSkipOrder(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodPost || r.URL.Path != "/api/ratings/order/ord1/skip" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.SkipOrder(context.Background(), "ord1"); err != nil {
		t.Fatalf("SkipOrder() error = %v", err)
	}
	if !called {
		t.Error("expected skip endpoint to be called")
	}
}

func TestAPIClientExistingRatings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bareArray", body: `[{"productId":"burger1","rating":4}]`},
		{name: "enveloped", body: `{"data":[{"productId":"burger1","rating":4}]}`},
		{name: "wrapped", body: `{"ratings":[{"productId":"burger1","rating":4}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/ratings/order/ord1/existing-ratings" {
					t.Errorf("Path = %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			})

			ratings, err := client.ExistingRatings(context.Background(), "ord1")
			if err != nil {
				t.Fatalf("ExistingRatings() error = %v", err)
			}
			if len(ratings) != 1 || ratings[0].ProductID != "burger1" || ratings[0].Rating != 4 {
				t.Errorf("unexpected ratings: %+v", ratings)
			}
		})
	}
}

func TestAPIClientMissingIDs(t *testing.T) {
	client := NewAPIClientWith(nil, "http://backend.invalid", nil)
	ctx := context.Background()

	if _, err := client.GetOrder(ctx, ""); err == nil {
		t.Error("GetOrder() with empty id should return error")
	}
	if _, err := client.RatedProducts(ctx, ""); err == nil {
		t.Error("RatedProducts() with empty id should return error")
	}
	if _, err := client.GetProduct(ctx, ""); err == nil {
		t.Error("GetProduct() with empty id should return error")
	}
	if err := client.SkipOrder(ctx, ""); err == nil {
		t.Error("SkipOrder() with empty id should return error")
	}
}
