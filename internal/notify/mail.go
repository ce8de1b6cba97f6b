package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds one delivery attempt of the mail and Slack sinks.
const DefaultTimeout = 15 * time.Second

// MailConfig holds SMTP relay settings.
type MailConfig struct {
	Server     string
	Port       int
	Sender     string
	Recipients []string
	CC         []string
	// Timeout bounds dialing and the whole SMTP exchange. Zero means DefaultTimeout.
	Timeout    time.Duration
}

// Mail sends an HTML mail through an SMTP relay.
type Mail struct {
	config MailConfig
	logger *slog.Logger
	send   func(ctx context.Context, addr, from string, to []string, msg []byte) error
}

// NewMail creates a mail notifier. Server and port default to 127.0.0.1:25.
func NewMail(cfg MailConfig, logger *slog.Logger) *Mail {
	if cfg.Server == "" {
		cfg.Server = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mail{config: cfg, logger: logger}
	m.send = m.sendSMTP
	return m
}

func (m *Mail) Name() string { return "mail" }

func (m *Mail) Notify(ctx context.Context, msg Message) error {
	if len(m.config.Recipients) == 0 {
		m.logger.Warn("mail not sent: no recipients")
		return nil
	}
	body, err := renderHTML(msg)
	if err != nil {
		return fmt.Errorf("mail: render: %w", err)
	}
	raw := m.compose(msg.Subject, body)

	addr := net.JoinHostPort(m.config.Server, strconv.Itoa(m.config.Port))
	m.logger.Info("sending mail", "server", addr, "recipients", m.config.Recipients, "cc", m.config.CC)
	to := append(append([]string{}, m.config.Recipients...), m.config.CC...)
	if err := m.send(ctx, addr, m.config.Sender, to, raw); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

// sendSMTP delivers msg through an unauthenticated relay. The connection
// carries a deadline so a relay that stops answering cannot stall the run.
func (m *Mail) sendSMTP(ctx context.Context, addr, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mail) compose(subject, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "From: %s\r\n", m.config.Sender)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.config.Recipients, ", "))
	if len(m.config.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(m.config.CC, ", "))
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return b.Bytes()
}

var mailTemplate = template.Must(template.New("mail").Parse(`<html>
    <body>
        <h1 style="color:Tomato;">{{ .Subject }}</h1>
        <p>{{ .Error }}</p>
        {{- if .CaseID }}
        <p>Case: {{ .CaseID }}</p>
        {{- end }}
        {{- if .Profile }}
        <p>Profile: {{ .Profile }}</p>
        {{- end }}
        {{- if .RunID }}
        <p>Run: {{ .RunID }}</p>
        {{- end }}
        <br>
        {{- if .HasSOAPContext }}
        <h3>SOAP action</h3>
        <p>{{ .SOAPAction }}</p>
        <br>
        <h3>SOAP Payload</h3>
        <pre>
{{ .SOAPPayload }}
        </pre>
        {{- end }}
        {{- if .Logs }}
        <h3>Log</h3>
        <pre>
{{ range .Logs }}{{ .String }}
{{ end }}</pre>
        {{- end }}
    </body>
</html>
`))

func renderHTML(msg Message) (string, error) {
	var b strings.Builder
	if err := mailTemplate.Execute(&b, msg); err != nil {
		return "", err
	}
	return b.String(), nil
}
