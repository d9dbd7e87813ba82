package main

import (
	"net/http"
	"strings"
)

func (app *application) listSubscribersHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	subs, err := st.listSubscribers(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(w, r)
	data.Subscribers = subs
	app.render(w, r, http.StatusOK, "subscribers.tmpl", data)
}

func (app *application) newSubscriberFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "subscriber_form.tmpl", app.newTemplateData(w, r))
}

func readSubscriberForm(r *http.Request) (subscriber, *validator) {
	sub := subscriber{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	v := newValidator()
	v.checkCond(sub.Name != "" && sub.Email != "", "required", "Name and email are required.")
	v.checkEmail(sub.Email)
	return sub, v
}

// renderSubscriberForm re-renders the form with error notices. existing is nil on create.
func (app *application) renderSubscriberForm(w http.ResponseWriter, r *http.Request, status int, existing *subscriber, messages ...string) {
	data := app.newTemplateData(w, r)
	data.Subscriber = existing
	for _, msg := range messages {
		data.Flashes = append(data.Flashes, flash{Category: "error", Message: msg})
	}
	app.render(w, r, status, "subscriber_form.tmpl", data)
}

func (app *application) createSubscriberHandler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sub, v := readSubscriberForm(r)
	if v.hasErrors() {
		app.renderSubscriberForm(w, r, http.StatusUnprocessableEntity, nil, v.messages()...)
		return
	}

	err = app.inTx(r.Context(), func(st *storage) error {
		return st.insertSubscriber(r.Context(), &sub)
	})
	switch {
	case isUniqueViolation(err):
		app.renderSubscriberForm(w, r, http.StatusConflict, nil, "That email is already registered.")
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	app.redirectWithFlash(w, r, "/subscribers/", "success", "Subscriber added.")
}

func (app *application) fetchSubscriber(w http.ResponseWriter, r *http.Request) *subscriber {
	id, ok := readIDParam(r)
	if !ok {
		app.redirectWithFlash(w, r, "/subscribers/", "error", "Subscriber not found.")
		return nil
	}
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return nil
	}
	sub, err := st.getSubscriberByID(r.Context(), id)
	if err != nil {
		app.serverError(w, r, err)
		return nil
	}
	if sub == nil {
		app.redirectWithFlash(w, r, "/subscribers/", "error", "Subscriber not found.")
		return nil
	}
	return sub
}

func (app *application) editSubscriberFormHandler(w http.ResponseWriter, r *http.Request) {
	sub := app.fetchSubscriber(w, r)
	if sub == nil {
		return
	}
	data := app.newTemplateData(w, r)
	data.Subscriber = sub
	app.render(w, r, http.StatusOK, "subscriber_form.tmpl", data)
}

func (app *application) updateSubscriberHandler(w http.ResponseWriter, r *http.Request) {
	existing := app.fetchSubscriber(w, r)
	if existing == nil {
		return
	}
	err := r.ParseForm()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	input, v := readSubscriberForm(r)
	if v.hasErrors() {
		app.renderSubscriberForm(w, r, http.StatusUnprocessableEntity, existing, v.messages()...)
		return
	}

	updated := *existing
	updated.Name = input.Name
	updated.Email = input.Email
	err = app.inTx(r.Context(), func(st *storage) error {
		return st.updateSubscriber(r.Context(), &updated)
	})
	switch {
	case isUniqueViolation(err):
		app.renderSubscriberForm(w, r, http.StatusConflict, existing, "That email is already in use.")
		return
	case err != nil:
		app.serverError(w, r, err)
		return
	}
	app.redirectWithFlash(w, r, "/subscribers/", "success", "Subscriber updated.")
}

func (app *application) toggleSubscriberHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := readIDParam(r)
	if !ok {
		app.redirectWithFlash(w, r, "/subscribers/", "error", "Subscriber not found.")
		return
	}
	var active, found bool
	err := app.inTx(r.Context(), func(st *storage) error {
		var err error
		active, found, err = st.toggleSubscriberActive(r.Context(), id)
		return err
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !found {
		app.redirectWithFlash(w, r, "/subscribers/", "error", "Subscriber not found.")
		return
	}
	status := "deactivated"
	if active {
		status = "activated"
	}
	app.redirectWithFlash(w, r, "/subscribers/", "success", "Subscriber "+status+".")
}
