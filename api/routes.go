package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", app.indexHandler)
	mux.HandleFunc("GET /health", app.healthCheckHandler)

	mux.HandleFunc("GET /tasks/{$}", app.listTasksHandler)
	mux.HandleFunc("GET /tasks/archived", app.listArchivedTasksHandler)
	mux.HandleFunc("GET /tasks/new", app.newTaskFormHandler)
	mux.HandleFunc("POST /tasks/new", app.createTaskHandler)
	mux.HandleFunc("POST /tasks/ai-suggest", app.aiSuggestHandler)
	mux.HandleFunc("GET /tasks/{id}", app.showTaskHandler)
	mux.HandleFunc("GET /tasks/{id}/edit", app.editTaskFormHandler)
	mux.HandleFunc("POST /tasks/{id}/edit", app.updateTaskHandler)
	mux.HandleFunc("POST /tasks/{id}/toggle", app.toggleTaskHandler)
	mux.HandleFunc("POST /tasks/{id}/archive", app.archiveTaskHandler)
	mux.HandleFunc("POST /tasks/{id}/unarchive", app.unarchiveTaskHandler)

	mux.HandleFunc("GET /subscribers/{$}", app.listSubscribersHandler)
	mux.HandleFunc("GET /subscribers/new", app.newSubscriberFormHandler)
	mux.HandleFunc("POST /subscribers/new", app.createSubscriberHandler)
	mux.HandleFunc("GET /subscribers/{id}/edit", app.editSubscriberFormHandler)
	mux.HandleFunc("POST /subscribers/{id}/edit", app.updateSubscriberHandler)
	mux.HandleFunc("POST /subscribers/{id}/toggle", app.toggleSubscriberHandler)

	mux.HandleFunc("GET /reminders/{$}", app.listRemindersHandler)

	var handler http.Handler = app.withDBSession(mux)
	if app.config.limiter.enabled {
		handler = app.rateLimit(handler)
	}
	return app.recoverPanic(app.logRequest(handler))
}
