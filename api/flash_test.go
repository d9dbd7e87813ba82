package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFlashRoundTrip(t *testing.T) {
	app, _, _ := newTestApplication(t)

	token, err := app.signFlashes([]flash{{Category: "success", Message: "Task created."}})
	if err != nil {
		t.Fatalf("signFlashes() error = %v", err)
	}
	flashes, err := app.parseFlashes(token)
	if err != nil {
		t.Fatalf("parseFlashes() error = %v", err)
	}
	if len(flashes) != 1 || flashes[0].Message != "Task created." || flashes[0].Category != "success" {
		t.Errorf("parseFlashes() = %+v", flashes)
	}
}

func TestFlashRejectsForeignKey(t *testing.T) {
	app, _, _ := newTestApplication(t)
	other, _, _ := newTestApplication(t)
	other.config.secretKey = "another-secret"

	token, err := other.signFlashes([]flash{{Category: "error", Message: "forged"}})
	if err != nil {
		t.Fatalf("signFlashes() error = %v", err)
	}
	if _, err := app.parseFlashes(token); err == nil {
		t.Error("parseFlashes() accepted a token signed with another key")
	}
}

func TestAddFlashKeepsUnreadNotices(t *testing.T) {
	app, _, _ := newTestApplication(t)

	first := httptest.NewRecorder()
	app.addFlash(first, httptest.NewRequest(http.MethodPost, "/", nil), "success", "Task archived.")

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	for _, c := range first.Result().Cookies() {
		r.AddCookie(c)
	}
	second := httptest.NewRecorder()
	app.addFlash(second, r, "error", "Task not found.")

	flashes := responseFlashes(t, app, second)
	if len(flashes) != 2 {
		t.Fatalf("got %d flashes, want 2", len(flashes))
	}
	if flashes[0].Message != "Task archived." || flashes[1].Message != "Task not found." {
		t.Errorf("flashes = %+v", flashes)
	}
}

func TestPopFlashesDiscardsTamperedCookie(t *testing.T) {
	app, _, _ := newTestApplication(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: flashCookieName, Value: "not.a.token"})

	rr := httptest.NewRecorder()
	if got := app.popFlashes(rr, r); got != nil {
		t.Errorf("popFlashes() = %+v, want nil", got)
	}
}
