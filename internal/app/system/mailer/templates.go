// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// SiteName appears in subjects and the HTML header.
const SiteName = "CampHub"

// message is the content shared by every template: a heading, some
// paragraphs and an optional call-to-action button.
type message struct {
	SiteName   string
	Heading    string
	Paragraphs []string
	ButtonText string
	ButtonURL  string
	Footer     string
}

func (m message) email(to, subject string) Email {
	m.SiteName = SiteName
	return Email{
		To:       to,
		Subject:  subject,
		TextBody: m.text(),
		HTMLBody: m.html(),
	}
}

func (m message) text() string {
	var buf bytes.Buffer
	if m.Heading != "" {
		buf.WriteString(m.Heading + "\n\n")
	}
	for _, p := range m.Paragraphs {
		buf.WriteString(p + "\n\n")
	}
	if m.ButtonURL != "" {
		buf.WriteString(fmt.Sprintf("%s:\n%s\n\n", m.ButtonText, m.ButtonURL))
	}
	if m.Footer != "" {
		buf.WriteString(m.Footer + "\n")
	}
	return buf.String()
}

var layout = template.Must(template.New("layout").Parse(layoutHTML))

func (m message) html() string {
	var buf bytes.Buffer
	_ = layout.Execute(&buf, m)
	return buf.String()
}

// WelcomeEmailData fills the registration welcome email.
type WelcomeEmailData struct {
	Name        string
	AccountType string
	LoginURL    string
}

// BuildWelcomeEmail greets a newly registered account.
func BuildWelcomeEmail(to string, d WelcomeEmailData) Email {
	next := "Complete your profile so camps can get to know you, then start browsing camps."
	if d.AccountType == "camp" {
		next = "Finish your camp profile and make it public when you're ready to recruit."
	}
	return message{
		Heading:    fmt.Sprintf("Welcome, %s!", fallback(d.Name, "burner")),
		Paragraphs: []string{"Your " + SiteName + " account is ready.", next},
		ButtonText: "Sign in",
		ButtonURL:  d.LoginURL,
	}.email(to, "Welcome to "+SiteName)
}

// PasswordResetEmailData fills the reset email.
type PasswordResetEmailData struct {
	ResetURL  string
	ExpiresIn string
}

// BuildPasswordResetEmail carries a single-use reset link.
func BuildPasswordResetEmail(to string, d PasswordResetEmailData) Email {
	return message{
		Heading:    "Reset your password",
		Paragraphs: []string{"We received a request to reset the password for your account."},
		ButtonText: "Choose a new password",
		ButtonURL:  d.ResetURL,
		Footer:     fmt.Sprintf("This link expires in %s. If you did not ask for a reset, you can ignore this email.", d.ExpiresIn),
	}.email(to, "Reset your "+SiteName+" password")
}

// BuildInviteEmail wraps an already-rendered camp invite body.
func BuildInviteEmail(to, campName, body, link string) Email {
	return message{
		Heading:    fmt.Sprintf("You're invited to %s", campName),
		Paragraphs: strings.Split(body, "\n"),
		ButtonText: "Start your application",
		ButtonURL:  link,
	}.email(to, fmt.Sprintf("You're invited to join %s", campName))
}

// ApplicationEmailData describes an application event.
type ApplicationEmailData struct {
	ApplicantName string
	CampName      string
	Status        string
	Notes         string
	URL           string
}

// BuildApplicationReceivedEmail notifies a camp of a new application.
func BuildApplicationReceivedEmail(to string, d ApplicationEmailData) Email {
	return message{
		Heading:    "New application",
		Paragraphs: []string{fmt.Sprintf("%s applied to join %s.", d.ApplicantName, d.CampName)},
		ButtonText: "Review applications",
		ButtonURL:  d.URL,
	}.email(to, fmt.Sprintf("New application for %s", d.CampName))
}

// BuildApplicationStatusEmail tells an applicant their status changed.
func BuildApplicationStatusEmail(to string, d ApplicationEmailData) Email {
	paras := []string{fmt.Sprintf("Your application to %s is now: %s.", d.CampName, d.Status)}
	if d.Notes != "" {
		paras = append(paras, "Notes from the camp: "+d.Notes)
	}
	return message{
		Heading:    "Application update",
		Paragraphs: paras,
		ButtonText: "View your applications",
		ButtonURL:  d.URL,
	}.email(to, fmt.Sprintf("Your application to %s", d.CampName))
}

// BuildApplicationMessageEmail relays a message on an application thread.
func BuildApplicationMessageEmail(to string, d ApplicationEmailData, from, body string) Email {
	return message{
		Heading:    "New message",
		Paragraphs: []string{fmt.Sprintf("%s wrote about the %s application:", from, d.CampName), body},
		ButtonText: "Reply",
		ButtonURL:  d.URL,
	}.email(to, fmt.Sprintf("New message about %s", d.CampName))
}

// TaskEmailData describes an assigned task.
type TaskEmailData struct {
	CampName string
	TaskCode string
	Title    string
	DueDate  string
	URL      string
}

// BuildTaskAssignedEmail notifies an assignee.
func BuildTaskAssignedEmail(to string, d TaskEmailData) Email {
	paras := []string{fmt.Sprintf("%s assigned you task %s: %s.", d.CampName, d.TaskCode, d.Title)}
	if d.DueDate != "" {
		paras = append(paras, "Due "+d.DueDate+".")
	}
	return message{
		Heading:    "New task",
		Paragraphs: paras,
		ButtonText: "View your tasks",
		ButtonURL:  d.URL,
	}.email(to, fmt.Sprintf("[%s] %s", d.TaskCode, d.Title))
}

// BuildMemberAddedEmail tells a manually added member how to sign in.
func BuildMemberAddedEmail(to, campName, resetURL string) Email {
	return message{
		Heading: fmt.Sprintf("You've been added to %s", campName),
		Paragraphs: []string{
			fmt.Sprintf("A lead of %s added you to the camp roster and created an account for you.", campName),
			"Set a password to sign in and complete your profile.",
		},
		ButtonText: "Set your password",
		ButtonURL:  resetURL,
	}.email(to, fmt.Sprintf("Welcome to %s", campName))
}

// ContactEmailData is a help-desk submission.
type ContactEmailData struct {
	TicketID string
	Name     string
	Email    string
	Category string
	Subject  string
	Message  string
}

// BuildContactEmail forwards a support ticket to the support inbox.
func BuildContactEmail(to string, d ContactEmailData) Email {
	e := message{
		Heading: "Support request " + d.TicketID,
		Paragraphs: []string{
			fmt.Sprintf("From: %s <%s>", d.Name, d.Email),
			"Category: " + fallback(d.Category, "General"),
			"Subject: " + d.Subject,
			d.Message,
		},
	}.email(to, fmt.Sprintf("[%s] %s", d.TicketID, d.Subject))
	e.ReplyTo = d.Email
	return e
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5efe6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f5efe6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #eadfce;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #c2410c;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 28px 32px;">
              {{if .Heading}}<h2 style="margin: 0 0 16px; font-size: 18px; color: #1f2937;">{{.Heading}}</h2>{{end}}
              {{range .Paragraphs}}<p style="margin: 0 0 16px; font-size: 15px; color: #374151; line-height: 1.5;">{{.}}</p>
              {{end}}
              {{if .ButtonURL}}
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center" style="padding-top: 8px;">
                    <a href="{{.ButtonURL}}" style="display: inline-block; padding: 12px 28px; background-color: #c2410c; color: #ffffff; text-decoration: none; font-size: 15px; border-radius: 6px;">{{.ButtonText}}</a>
                  </td>
                </tr>
              </table>
              {{end}}
            </td>
          </tr>
          {{if .Footer}}
          <tr>
            <td style="padding: 20px 32px; background-color: #faf7f2; border-top: 1px solid #eadfce; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">{{.Footer}}</p>
            </td>
          </tr>
          {{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
