package main

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"log/slog"
	"os"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/go-mail/mail/v2"
)

const (
	stampLayout = "January 02, 2006 at 15:04"
	logoCID     = "taskflow-logo"
)

func formatStamp(t time.Time) string {
	return t.Format(stampLayout)
}

type notificationEvent string

const (
	eventTaskCreated   notificationEvent = "task_created"
	eventTaskCompleted notificationEvent = "task_completed"
)

type deliveryOutcome string

const (
	deliverySent                deliveryOutcome = "sent"
	deliveryFailed              deliveryOutcome = "failed"
	deliverySkippedUnconfigured deliveryOutcome = "skipped_unconfigured"
	deliverySkippedNoRecipients deliveryOutcome = "skipped_no_recipients"
)

// deliveryResult is what a notification attempt amounted to. It never turns
// into an HTTP failure; callers log it and move on.
type deliveryResult struct {
	Event      notificationEvent
	TaskID     int
	Outcome    deliveryOutcome
	Recipients int
	Err        error
}

func (r deliveryResult) logAttrs() []any {
	attrs := []any{
		"event", r.Event,
		"task_id", r.TaskID,
		"outcome", r.Outcome,
		"recipients", r.Recipients,
	}
	if r.Err != nil {
		attrs = append(attrs, "error", r.Err)
	}
	return attrs
}

type taskEmail struct {
	Subject string
	Plain   string
	HTML    string
	// LogoPath is set when the logo was found on disk and must be embedded.
	LogoPath string
}

type emailData struct {
	Heading          string
	Intro            string
	Status           string
	Title            string
	Body             string
	ReminderAt       string
	ReminderNote     string
	AIRecommendation string
	CreatedAt        string
	HasLogo          bool
	LogoCID          string
}

type composer struct {
	plain    *texttemplate.Template
	html     *htmltemplate.Template
	logoPath string
}

func newComposer(logoPath string) (*composer, error) {
	plain, err := texttemplate.ParseFS(uiFS, "ui/email/task.txt.tmpl")
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.ParseFS(uiFS, "ui/email/task.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &composer{plain: plain, html: html, logoPath: logoPath}, nil
}

// logoOnDisk is checked on every render; the asset may be added or removed
// while the process runs.
func (c *composer) logoOnDisk() bool {
	if c.logoPath == "" {
		return false
	}
	info, err := os.Stat(c.logoPath)
	return err == nil && !info.IsDir()
}

func (c *composer) compose(event notificationEvent, t *task) (*taskEmail, error) {
	data := emailData{
		Title:            t.Title,
		Body:             t.Body,
		AIRecommendation: t.AIRecommendation,
		LogoCID:          logoCID,
	}
	switch event {
	case eventTaskCompleted:
		data.Heading = "Task completed"
		data.Intro = "A task was completed in TaskFlow:"
		data.Status = "Completed"
	default:
		data.Heading = "New task created"
		data.Intro = "New task created in TaskFlow:"
		data.Status = "Pending"
	}
	if t.ReminderAt != nil {
		data.ReminderAt = formatStamp(*t.ReminderAt)
		data.ReminderNote = t.ReminderNote
	}
	if !t.CreatedAt.IsZero() {
		data.CreatedAt = formatStamp(t.CreatedAt)
	}
	data.HasLogo = c.logoOnDisk()

	var subject bytes.Buffer
	err := c.plain.ExecuteTemplate(&subject, "subject", data)
	if err != nil {
		return nil, err
	}
	var plainBody bytes.Buffer
	err = c.plain.ExecuteTemplate(&plainBody, "plainBody", data)
	if err != nil {
		return nil, err
	}
	var htmlBody bytes.Buffer
	err = c.html.ExecuteTemplate(&htmlBody, "htmlBody", data)
	if err != nil {
		return nil, err
	}

	e := &taskEmail{
		Subject: strings.TrimSpace(subject.String()),
		Plain:   strings.TrimSpace(plainBody.String()),
		HTML:    htmlBody.String(),
	}
	if data.HasLogo {
		e.LogoPath = c.logoPath
	}
	return e, nil
}

// messages builds one message per recipient so no subscriber sees another's address.
func (e *taskEmail) messages(from string, recipients []string) []*mail.Message {
	msgs := make([]*mail.Message, 0, len(recipients))
	for _, to := range recipients {
		msg := mail.NewMessage()
		msg.SetHeader("From", from)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", e.Subject)
		msg.SetBody("text/plain", e.Plain)
		msg.AddAlternative("text/html", e.HTML)
		if e.LogoPath != "" {
			msg.Embed(e.LogoPath, mail.SetHeader(map[string][]string{
				"Content-ID": {"<" + logoCID + ">"},
			}))
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

type notifier struct {
	sender   mailSender
	from     string
	override string
	composer *composer
	logger   *slog.Logger
}

func (n *notifier) taskCreated(ctx context.Context, st *storage, t *task) deliveryResult {
	return n.notify(ctx, st, eventTaskCreated, t)
}

func (n *notifier) taskCompleted(ctx context.Context, st *storage, t *task) deliveryResult {
	return n.notify(ctx, st, eventTaskCompleted, t)
}

func (n *notifier) notify(ctx context.Context, st *storage, event notificationEvent, t *task) deliveryResult {
	res := n.deliver(ctx, st, event, t)
	switch res.Outcome {
	case deliveryFailed:
		n.logger.Error("notification not delivered", res.logAttrs()...)
	default:
		n.logger.Info("notification", res.logAttrs()...)
	}
	return res
}

func (n *notifier) deliver(ctx context.Context, st *storage, event notificationEvent, t *task) deliveryResult {
	res := deliveryResult{Event: event, TaskID: t.ID}
	if n.sender == nil {
		res.Outcome = deliverySkippedUnconfigured
		return res
	}

	recipients, err := n.recipients(ctx, st)
	if err != nil {
		res.Outcome = deliveryFailed
		res.Err = err
		return res
	}
	res.Recipients = len(recipients)
	if len(recipients) == 0 {
		res.Outcome = deliverySkippedNoRecipients
		return res
	}

	email, err := n.composer.compose(event, t)
	if err != nil {
		res.Outcome = deliveryFailed
		res.Err = err
		return res
	}
	err = n.sender.send(email.messages(n.from, recipients)...)
	if err != nil {
		res.Outcome = deliveryFailed
		res.Err = err
		return res
	}
	res.Outcome = deliverySent
	return res
}

// recipients is the configured override address when set, otherwise every
// active subscriber.
func (n *notifier) recipients(ctx context.Context, st *storage) ([]string, error) {
	if n.override != "" {
		return []string{n.override}, nil
	}
	return st.activeSubscriberEmails(ctx)
}
