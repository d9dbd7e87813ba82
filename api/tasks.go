package main

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	tasks, err := st.listTasks(r.Context(), false)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(w, r)
	data.Tasks = tasks
	app.render(w, r, http.StatusOK, "tasks.tmpl", data)
}

func (app *application) listArchivedTasksHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	tasks, err := st.listTasks(r.Context(), true)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := app.newTemplateData(w, r)
	data.Tasks = tasks
	app.render(w, r, http.StatusOK, "archived.tmpl", data)
}

// fetchTask loads the task named in the path. It answers the request itself
// and returns nil when the task cannot be shown.
func (app *application) fetchTask(w http.ResponseWriter, r *http.Request) *task {
	id, ok := readIDParam(r)
	if !ok {
		app.redirectWithFlash(w, r, "/tasks/", "error", "Task not found.")
		return nil
	}
	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return nil
	}
	t, err := st.getTaskByID(r.Context(), id)
	if err != nil {
		app.serverError(w, r, err)
		return nil
	}
	if t == nil {
		app.redirectWithFlash(w, r, "/tasks/", "error", "Task not found.")
		return nil
	}
	return t
}

func (app *application) showTaskHandler(w http.ResponseWriter, r *http.Request) {
	t := app.fetchTask(w, r)
	if t == nil {
		return
	}
	data := app.newTemplateData(w, r)
	data.Task = t
	app.render(w, r, http.StatusOK, "task.tmpl", data)
}

func (app *application) newTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusOK, "task_form.tmpl", app.newTemplateData(w, r))
}

const maxTitleLength = 255

type taskForm struct {
	task
	v *validator
}

func readTaskForm(r *http.Request) taskForm {
	f := taskForm{v: newValidator()}
	f.Title = strings.TrimSpace(r.PostFormValue("title"))
	f.Body = strings.TrimSpace(r.PostFormValue("body"))
	f.ReminderNote = strings.TrimSpace(r.PostFormValue("reminder_note"))
	f.AIRecommendation = strings.TrimSpace(r.PostFormValue("ai_recommendation"))

	f.v.checkCond(f.Title != "", "title", "Title is required.")
	f.v.checkCond(utf8.RuneCountInString(f.Title) <= maxTitleLength, "title", "Title must be at most 255 characters.")
	f.ReminderAt = f.v.checkReminder(r.PostFormValue("reminder_at"))
	return f
}

// formErrors turns validation failures into error notices for a re-rendered form.
func formErrors(v *validator) []flash {
	var flashes []flash
	for _, msg := range v.messages() {
		flashes = append(flashes, flash{Category: "error", Message: msg})
	}
	return flashes
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	f := readTaskForm(r)
	if f.v.hasErrors() {
		data := app.newTemplateData(w, r)
		data.Flashes = append(data.Flashes, formErrors(f.v)...)
		app.render(w, r, http.StatusUnprocessableEntity, "task_form.tmpl", data)
		return
	}

	t := f.task
	err = app.inTx(r.Context(), func(st *storage) error {
		return st.insertTask(r.Context(), &t)
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	st, err := app.store(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	created, err := st.getTaskByID(r.Context(), t.ID)
	if err != nil {
		app.logger.Error("reload created task", "task_id", t.ID, "error", err)
		created = &t
	}
	if created != nil {
		app.notifier.taskCreated(r.Context(), st, created)
	}

	app.redirectWithFlash(w, r, fmt.Sprintf("/tasks/%d", t.ID), "success", "Task created.")
}

func (app *application) editTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	t := app.fetchTask(w, r)
	if t == nil {
		return
	}
	data := app.newTemplateData(w, r)
	data.Task = t
	app.render(w, r, http.StatusOK, "task_form.tmpl", data)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	existing := app.fetchTask(w, r)
	if existing == nil {
		return
	}
	err := r.ParseForm()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	f := readTaskForm(r)
	if f.v.hasErrors() {
		data := app.newTemplateData(w, r)
		data.Task = existing
		data.Flashes = append(data.Flashes, formErrors(f.v)...)
		app.render(w, r, http.StatusUnprocessableEntity, "task_form.tmpl", data)
		return
	}

	existing.Title = f.Title
	existing.Body = f.Body
	existing.ReminderAt = f.ReminderAt
	existing.ReminderNote = f.ReminderNote
	err = app.inTx(r.Context(), func(st *storage) error {
		return st.updateTask(r.Context(), existing)
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.redirectWithFlash(w, r, fmt.Sprintf("/tasks/%d", existing.ID), "success", "Task updated.")
}

func (app *application) toggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := readIDParam(r)
	if !ok {
		app.redirectWithFlash(w, r, "/tasks/", "error", "Task not found.")
		return
	}
	var completed, found bool
	err := app.inTx(r.Context(), func(st *storage) error {
		var err error
		completed, found, err = st.toggleTaskCompleted(r.Context(), id)
		return err
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !found {
		app.redirectWithFlash(w, r, "/tasks/", "error", "Task not found.")
		return
	}

	if completed {
		st, err := app.store(r.Context())
		if err == nil {
			var t *task
			t, err = st.getTaskByID(r.Context(), id)
			if t != nil {
				app.notifier.taskCompleted(r.Context(), st, t)
			}
		}
		if err != nil {
			app.logger.Error("load completed task", "task_id", id, "error", err)
		}
	}

	target := "/tasks/"
	if ref, ok := sameOriginReferer(r); ok {
		target = ref
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (app *application) archiveTaskHandler(w http.ResponseWriter, r *http.Request) {
	app.setArchived(w, r, true)
}

func (app *application) unarchiveTaskHandler(w http.ResponseWriter, r *http.Request) {
	app.setArchived(w, r, false)
}

func (app *application) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	target, notice := "/tasks/", "Task archived."
	if !archived {
		target, notice = "/tasks/archived", "Task restored."
	}
	id, ok := readIDParam(r)
	if !ok {
		app.redirectWithFlash(w, r, target, "error", "Task not found.")
		return
	}
	var found bool
	err := app.inTx(r.Context(), func(st *storage) error {
		var err error
		found, err = st.setTaskArchived(r.Context(), id, archived)
		return err
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !found {
		app.redirectWithFlash(w, r, target, "error", "Task not found.")
		return
	}
	app.redirectWithFlash(w, r, target, "success", notice)
}
