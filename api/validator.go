package main

import (
	"regexp"
	"strings"
	"time"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// reminderLayout is what a datetime-local input submits.
const reminderLayout = "2006-01-02T15:04"

type validator struct {
	errors map[string]string
	// order keeps messages in the order the checks ran.
	order []string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

// messages returns one message per failed field.
func (v *validator) messages() []string {
	msgs := make([]string, 0, len(v.order))
	for _, key := range v.order {
		msgs = append(msgs, v.errors[key])
	}
	return msgs
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
		v.order = append(v.order, key)
	}
}

// checkEmail only checks the format; presence is checked with the other required fields.
func (v *validator) checkEmail(email string) {
	v.checkCond(email == "" || emailRegexp.MatchString(email), "email", "Email must be a valid email address.")
}

// checkReminder parses an optional datetime-local value; an empty value is no reminder.
func (v *validator) checkReminder(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	at, err := time.Parse(reminderLayout, raw)
	v.checkCond(err == nil, "reminder_at", "Reminder must be a valid date and time.")
	if err != nil {
		return nil
	}
	return &at
}
