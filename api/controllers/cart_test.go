package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	cartsvc "github.com/thriftline/thriftline-backend/internal/cart"
)

type testCartService struct {
	addFn    func(ctx context.Context, buyerID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartLineDTO, error)
	updateFn func(ctx context.Context, buyerID, cartID uuid.UUID, qty int) (*cartsvc.CartLineDTO, error)
	removeFn func(ctx context.Context, buyerID, cartID uuid.UUID) error
	listFn   func(ctx context.Context, buyerID uuid.UUID) (*cartsvc.CartDTO, error)
	countFn  func(ctx context.Context, buyerID uuid.UUID) (int, error)
}

func (s *testCartService) AddItem(ctx context.Context, buyerID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartLineDTO, error) {
	if s.addFn != nil {
		return s.addFn(ctx, buyerID, input)
	}
	return &cartsvc.CartLineDTO{}, nil
}

func (s *testCartService) UpdateQuantity(ctx context.Context, buyerID, cartID uuid.UUID, qty int) (*cartsvc.CartLineDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, buyerID, cartID, qty)
	}
	return &cartsvc.CartLineDTO{}, nil
}

func (s *testCartService) RemoveItem(ctx context.Context, buyerID, cartID uuid.UUID) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, buyerID, cartID)
	}
	return nil
}

func (s *testCartService) List(ctx context.Context, buyerID uuid.UUID) (*cartsvc.CartDTO, error) {
	if s.listFn != nil {
		return s.listFn(ctx, buyerID)
	}
	return &cartsvc.CartDTO{}, nil
}

func (s *testCartService) Count(ctx context.Context, buyerID uuid.UUID) (int, error) {
	if s.countFn != nil {
		return s.countFn(ctx, buyerID)
	}
	return 0, nil
}

func TestCartAddSuccess(t *testing.T) {
	buyerID := uuid.New()
	productID := uuid.New()
	called := false
	svc := &testCartService{
		addFn: func(ctx context.Context, bid uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.CartLineDTO, error) {
			called = true
			if bid != buyerID {
				t.Fatalf("unexpected buyer %s", bid)
			}
			if input.ProductID != productID || input.Quantity != 2 {
				t.Fatalf("unexpected input %+v", input)
			}
			return &cartsvc.CartLineDTO{ID: uuid.New(), ProductID: productID, Quantity: 2}, nil
		},
	}

	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))
	req = withUser(req, buyerID)
	resp := httptest.NewRecorder()
	CartAdd(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestCartAddRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{"quantity":0}`))
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	CartAdd(&testCartService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CartAdd(&testCartService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartRemoveRequiresConfirmFlag(t *testing.T) {
	buyerID := uuid.New()
	cartID := uuid.New()
	removed := false
	svc := &testCartService{
		removeFn: func(ctx context.Context, bid, cid uuid.UUID) error {
			removed = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/"+cartID.String(), nil)
	req = withUser(req, buyerID)
	req = addRouteParam(req, "cartId", cartID.String())
	resp := httptest.NewRecorder()
	CartRemove(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirm got %d", resp.Code)
	}
	if removed {
		t.Fatal("service should not run without confirm=true")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/cart/"+cartID.String()+"?confirm=true", nil)
	req = withUser(req, buyerID)
	req = addRouteParam(req, "cartId", cartID.String())
	resp = httptest.NewRecorder()
	CartRemove(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !removed {
		t.Fatal("expected service called")
	}
}

func TestCartCountReturnsBadge(t *testing.T) {
	svc := &testCartService{
		countFn: func(ctx context.Context, buyerID uuid.UUID) (int, error) {
			return 4, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/count", nil)
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	CartCount(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["count"] != 4 {
		t.Fatalf("expected count=4 got %d", envelope.Data["count"])
	}
}
