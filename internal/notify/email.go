// Package notify sends email alerts for significant news changes.
// Messages go out over SMTPS (implicit TLS, port 465) using a Gmail
// account and app password.
package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forecastlabs/newswatch/internal/types"
)

const (
	defaultSMTPHost = "smtp.gmail.com"
	defaultSMTPPort = 465

	maxArticlesPerQuestion = 10
	maxSummaryChars        = 300
)

// NotifierConfig holds email notifier construction parameters.
type NotifierConfig struct {
	User       string   // Gmail address used as sender and SMTP login
	Password   string   // Gmail app password
	Recipients []string // destination addresses
	SMTPHost   string   // defaults to smtp.gmail.com
	SMTPPort   int      // defaults to 465
}

// EmailNotifier renders significant change reports into an HTML digest
// and delivers it to the configured recipients.
type EmailNotifier struct {
	user       string
	password   string
	recipients []string
	host       string
	port       int

	// send delivers a fully rendered message; replaceable in tests.
	send func(from string, recipients []string, msg []byte) error
}

// NewEmailNotifier creates a notifier from the given config.
func NewEmailNotifier(cfg NotifierConfig) *EmailNotifier {
	host := cfg.SMTPHost
	if host == "" {
		host = defaultSMTPHost
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = defaultSMTPPort
	}
	n := &EmailNotifier{
		user:       cfg.User,
		password:   cfg.Password,
		recipients: cfg.Recipients,
		host:       host,
		port:       port,
	}
	n.send = n.sendSMTPS
	return n
}

// SendChangeAlert emails a digest of the given updates. Updates without
// a significant change report are filtered out; if nothing remains, or
// no recipients are configured, no mail is sent.
func (n *EmailNotifier) SendChangeAlert(updates []types.NewsUpdate) error {
	significant := filterSignificant(updates)
	if len(significant) == 0 {
		return nil
	}
	if len(n.recipients) == 0 {
		fmt.Println("No email recipients configured, skipping notification")
		return nil
	}

	body, err := renderDigest(significant, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rendering email body: %w", err)
	}

	msg := buildMessage(n.user, n.recipients, subjectLine(len(significant)), body)
	if err := n.send(n.user, n.recipients, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	fmt.Printf("Email notification sent to %d recipient(s)\n", len(n.recipients))
	return nil
}

func filterSignificant(updates []types.NewsUpdate) []types.NewsUpdate {
	var out []types.NewsUpdate
	for _, u := range updates {
		if u.ChangeReport != nil && u.ChangeReport.IsSignificant {
			out = append(out, u)
		}
	}
	return out
}

func subjectLine(n int) string {
	return fmt.Sprintf("News Alert: %d question(s) with significant changes", n)
}

// buildMessage assembles RFC 5322 headers plus the HTML body.
func buildMessage(from string, recipients []string, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Message-ID: <%s@newswatch>\r\n", uuid.NewString())
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}

// sendSMTPS delivers over implicit TLS, which Gmail requires on 465.
func (n *EmailNotifier) sendSMTPS(from string, recipients []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.host})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, n.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting SMTP session: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", n.user, n.password, n.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message: %w", err)
	}
	return client.Quit()
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 720px; margin: 0 auto;">
<h2>Significant News Changes Detected</h2>
<p>{{.GeneratedAt}} UTC &mdash; {{.Count}} question(s) with significant changes.</p>
{{range .Questions}}
<hr>
<h3><a href="{{.PageURL}}">{{.Title}}</a></h3>
<p><strong>Significance: {{.SignificancePercent}}%</strong></p>
<p>{{.ChangeSummary}}</p>
{{if .Articles}}
<h4>New articles ({{len .Articles}})</h4>
<ul>
{{range .Articles}}
<li>
<a href="{{.URL}}">{{.Title}}</a><br>
<small>{{.Source}}{{if .Date}} &middot; {{.Date}}{{end}}</small>
{{if .Summary}}<br>{{.Summary}}{{end}}
</li>
{{end}}
</ul>
{{end}}
{{end}}
<hr>
<p><small>Sent by newswatch.</small></p>
</body>
</html>
`))

type digestData struct {
	GeneratedAt string
	Count       int
	Questions   []questionBlock
}

type questionBlock struct {
	Title               string
	PageURL             string
	SignificancePercent int
	ChangeSummary       string
	Articles            []articleRow
}

type articleRow struct {
	Title   string
	URL     string
	Source  string
	Date    string
	Summary string
}

// renderDigest produces the HTML body for the given significant updates.
func renderDigest(updates []types.NewsUpdate, now time.Time) (string, error) {
	data := digestData{
		GeneratedAt: now.Format("2006-01-02 15:04"),
		Count:       len(updates),
	}

	for _, u := range updates {
		report := u.ChangeReport
		block := questionBlock{
			Title:               u.Question.Title,
			PageURL:             u.Question.PageURL,
			SignificancePercent: int(report.SignificanceScore * 100),
			ChangeSummary:       report.ChangeSummary,
		}

		articles := report.NewArticles
		if len(articles) > maxArticlesPerQuestion {
			articles = articles[:maxArticlesPerQuestion]
		}
		for _, a := range articles {
			row := articleRow{
				Title:   a.Title,
				URL:     a.URL,
				Source:  a.Source,
				Summary: truncate(a.Summary, maxSummaryChars),
			}
			if a.PublishedDate != nil {
				row.Date = a.PublishedDate.Format("2006-01-02")
			}
			block.Articles = append(block.Articles, row)
		}
		data.Questions = append(data.Questions, block)
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
