package main

import "net/http"

func (app *application) listRemindersHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	tasks, err := st.listReminders(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(w, r)
	data.Tasks = tasks
	app.render(w, r, http.StatusOK, "reminders.tmpl", data)
}
