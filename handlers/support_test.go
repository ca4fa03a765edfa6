package handlers

import (
	"net/http"
	"testing"

	"storefront/models"
)

func TestCreateInquiry(t *testing.T) {
	db := freshDB()
	app := newTestApp(db)

	w := app.serve(jsonRequest("POST", "/api/support/inquiries", map[string]string{
		"email": "help@example.com", "message": "Where is my lamp?",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var inquiries []models.Inquiry
	db.Find(&inquiries)
	if len(inquiries) != 1 || inquiries[0].Message != "Where is my lamp?" {
		t.Errorf("unexpected inquiries %+v", inquiries)
	}

	names := app.auditNames()
	if len(names) != 1 || names[0] != "INQUIRY_RECEIVED" {
		t.Errorf("expected INQUIRY_RECEIVED, got %v", names)
	}
	if app.auditLogs.All()[0].ContextMap()["email"] != "h***@example.com" {
		t.Error("expected the email to be masked in the audit trail")
	}
}

func TestCreateInquiryValidation(t *testing.T) {
	app := newTestApp(freshDB())

	w := app.serve(jsonRequest("POST", "/api/support/inquiries", map[string]string{"email": "bad"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
