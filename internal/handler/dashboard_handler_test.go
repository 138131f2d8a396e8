package handler

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestDashboardAggregates(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID

	electronics := createTestCategory(t, db, "Electronics", shop.ID)
	books := createTestCategory(t, db, "Books", shop.ID)
	createTestProduct(t, db, "Laptop", shop.ID, &electronics.ID, 1000, 2)
	createTestProduct(t, db, "Phone", shop.ID, &electronics.ID, 500, 4)
	createTestProduct(t, db, "Novel", shop.ID, &books.ID, 10, 100)

	// Another shop's stock must not leak into the aggregates
	otherShop := createTestShop(t, db, "Shop B", owner.ID)
	foreignCat := createTestCategory(t, db, "Foreign", otherShop.ID)
	createTestProduct(t, db, "Foreign Widget", otherShop.ID, &foreignCat.ID, 9999, 9999)

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/dashboard", nil)
	asUser(c, owner)
	if err := Dashboard(c); err != nil {
		t.Fatalf("Dashboard returned error: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var body struct {
		ShopID     uint               `json:"shop_id"`
		Products   []DashboardProduct `json:"products"`
		Categories []CategorySummary  `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode dashboard body: %v", err)
	}

	if body.ShopID != shop.ID {
		t.Errorf("expected shop_id %d, got %d", shop.ID, body.ShopID)
	}
	if len(body.Products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(body.Products))
	}
	// Products come back ordered by name
	if body.Products[0].Name != "Laptop" || body.Products[2].Name != "Phone" {
		t.Errorf("expected name ordering, got %v", body.Products)
	}
	if body.Products[0].CategoryName != "Electronics" {
		t.Errorf("expected category name joined in, got %q", body.Products[0].CategoryName)
	}

	if len(body.Categories) != 2 {
		t.Fatalf("expected 2 category summaries, got %d", len(body.Categories))
	}
	summaries := map[string]CategorySummary{}
	for _, s := range body.Categories {
		summaries[s.CategoryName] = s
	}

	elec := summaries["Electronics"]
	if elec.ProductCount != 2 || elec.TotalStock != 6 {
		t.Errorf("unexpected electronics summary: %+v", elec)
	}
	// 2*1000 + 4*500
	if elec.TotalValue != 4000 {
		t.Errorf("expected electronics total value 4000, got %v", elec.TotalValue)
	}

	bk := summaries["Books"]
	if bk.ProductCount != 1 || bk.TotalStock != 100 || bk.TotalValue != 1000 {
		t.Errorf("unexpected books summary: %+v", bk)
	}
}

func TestDashboardEmptyShop(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shop := createTestShop(t, db, "Shop A", owner.ID)
	owner.ShopID = &shop.ID

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/dashboard", nil)
	asUser(c, owner)
	Dashboard(c)
	expectStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	if products, ok := body["products"].([]interface{}); ok && len(products) != 0 {
		t.Errorf("expected no products, got %v", products)
	}
}

func TestDashboardRequiresShop(t *testing.T) {
	db := setupTestDB(t)
	unassigned := createTestUser(t, db, "alice", nil, false)

	c, rec := newRequest(t, http.MethodGet, "/api/inventory/dashboard", nil)
	asUser(c, unassigned)
	Dashboard(c)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestDashboardStaffAllShops(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice", nil, false)
	shopA := createTestShop(t, db, "Shop A", owner.ID)
	shopB := createTestShop(t, db, "Shop B", owner.ID)
	createTestProduct(t, db, "First", shopA.ID, nil, 100, 2)
	createTestProduct(t, db, "Second", shopB.ID, nil, 50, 4)

	staff := createTestUser(t, db, "admin", nil, true)
	c, rec := newRequest(t, http.MethodGet, "/api/inventory/dashboard", nil)
	asUser(c, staff)
	Dashboard(c)
	expectStatus(t, rec, http.StatusOK)

	var body struct {
		ShopID     *uint              `json:"shop_id"`
		Products   []DashboardProduct `json:"products"`
		Categories []CategorySummary  `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode dashboard body: %v", err)
	}

	if body.ShopID != nil {
		t.Errorf("expected null shop_id for the all-shop view, got %v", *body.ShopID)
	}
	if len(body.Products) != 2 {
		t.Fatalf("expected products from both shops, got %v", body.Products)
	}

	// Narrowing to one shop scopes the aggregates
	c, rec = newRequest(t, http.MethodGet, "/api/inventory/dashboard?shop_id="+uintParam(shopB.ID), nil)
	asUser(c, staff)
	Dashboard(c)
	expectStatus(t, rec, http.StatusOK)

	body.ShopID = nil
	body.Products = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode dashboard body: %v", err)
	}
	if body.ShopID == nil || *body.ShopID != shopB.ID {
		t.Errorf("expected shop_id %d, got %v", shopB.ID, body.ShopID)
	}
	if len(body.Products) != 1 || body.Products[0].Name != "Second" {
		t.Fatalf("expected only shop B products, got %v", body.Products)
	}
}
