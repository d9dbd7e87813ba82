package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	st, err := app.store(r.Context())
	if err == nil {
		err = st.ping(r.Context())
	}
	if err != nil {
		app.logger.Warn("health check failed", "error", err)
		status, code = "db_unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (app *application) indexHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/tasks/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func composeJSONError(err error) string {
	jsonError := map[string]string{
		"error": err.Error(),
	}
	result, err := json.Marshal(jsonError)
	if err != nil {
		log.Println(err)
		return ""
	}
	return string(result)
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintln(w, composeJSONError(err))
}

// serverError renders the degraded-service page when the store is
// unreachable and the generic error page otherwise.
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	if isStoreUnavailable(err) {
		app.logger.Error("store unavailable", "method", r.Method, "uri", r.URL.RequestURI(), "error", err)
		app.renderPlain(w, r, http.StatusServiceUnavailable, "unavailable.tmpl")
		return
	}
	app.logger.Error("server error", "method", r.Method, "uri", r.URL.RequestURI(), "error", err)
	app.renderPlain(w, r, http.StatusInternalServerError, "error.tmpl")
}

// renderPlain renders a page that needs no data. It falls back to plain text
// so a broken template cannot recurse into serverError.
func (app *application) renderPlain(w http.ResponseWriter, r *http.Request, status int, page string) {
	ts, ok := app.templates[page]
	if ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := ts.ExecuteTemplate(w, "base", &templateData{}); err != nil {
			app.logger.Error("render page", "page", page, "error", err)
		}
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func readIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// sameOriginReferer returns the referring path when it points back at this
// host, so a forged Referer cannot redirect elsewhere.
func sameOriginReferer(r *http.Request) (string, bool) {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Host != "" && u.Host != r.Host {
		return "", false
	}
	if u.Path == "" || u.Path[0] != '/' {
		return "", false
	}
	return u.RequestURI(), true
}
