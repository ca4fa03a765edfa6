package handlers

import (
	"fmt"
	"net/http"
	"testing"
)

func TestGetProductsSearchAndPaging(t *testing.T) {
	db := freshDB()
	app := newTestApp(db)
	seedProduct(db, "Table Lamp", "20.00")
	seedProduct(db, "Floor Lamp", "45.00")
	seedProduct(db, "Vase", "12.00")

	w := app.serve(jsonRequest("GET", "/api/products?search=lamp", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["total"].(float64) != 2 {
		t.Errorf("expected 2 lamps, got %v", resp["total"])
	}
	first := resp["products"].([]interface{})[0].(map[string]interface{})
	if first["name"] != "Floor Lamp" {
		t.Errorf("expected products ordered by name, got %v", first["name"])
	}

	w = app.serve(jsonRequest("GET", "/api/products?limit=1&page=3", nil))
	resp = parseResponse(w)
	products := resp["products"].([]interface{})
	if len(products) != 1 || products[0].(map[string]interface{})["name"] != "Vase" {
		t.Errorf("expected the third product alone, got %v", products)
	}
}

func TestGetProductByID(t *testing.T) {
	db := freshDB()
	app := newTestApp(db)
	prod := seedProduct(db, "Lamp", "20.00")

	w := app.serve(jsonRequest("GET", fmt.Sprintf("/api/products/%d", prod.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if parseResponse(w)["name"] != "Lamp" {
		t.Errorf("unexpected product %v", parseResponse(w))
	}

	if w := app.serve(jsonRequest("GET", "/api/products/999", nil)); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if w := app.serve(jsonRequest("GET", "/api/products/x", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
