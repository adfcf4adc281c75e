// internal/infra/mailer/smtp.go
package mailer

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"strings"
	"time"

	"cohort_report_service/internal/domain/mail"
)

// SMTPSender delivers mail over implicit-TLS SMTP (port 465 style). It
// implements mail.Client. One connection per message; the dispatcher sends
// sequentially, so pooling buys nothing here.
type SMTPSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
}

func NewSMTPSender(host, port, user, pass string) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: user,
		password: pass,
	}
}

func (e *SMTPSender) Send(msg mail.Message) error {
	body, err := buildMIME(msg)
	if err != nil {
		return err
	}

	serverAddr := e.smtpHost + ":" + e.smtpPort
	tlsConfig := &tls.Config{ServerName: e.smtpHost}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Quit()

	if e.username != "" {
		auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return nil
}

// buildMIME assembles multipart/mixed: a multipart/alternative part with the
// plain and HTML bodies, plus an optional base64 CSV attachment.
func buildMIME(msg mail.Message) ([]byte, error) {
	const mixedBoundary = "mixed-9b1c47d2a6"
	const altBoundary = "alt-5f3e81c0d4"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", msg.FromName), msg.FromEmail)
	fmt.Fprintf(&b, "To: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", msg.ToName), msg.ToEmail)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixedBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mixedBoundary)
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.PlainBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", altBoundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", altBoundary)

	if msg.AttachmentPath != "" {
		content, err := os.ReadFile(msg.AttachmentPath)
		if err != nil {
			return nil, fmt.Errorf("could not read attachment %s: %w", msg.AttachmentPath, err)
		}
		fmt.Fprintf(&b, "--%s\r\n", mixedBoundary)
		fmt.Fprintf(&b, "Content-Type: text/csv; name=%q\r\n", msg.AttachmentName)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", msg.AttachmentName)
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(content)))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mixedBoundary)
	return []byte(b.String()), nil
}

// wrapBase64 folds encoded content at the 76-character MIME line limit.
func wrapBase64(s string) string {
	const width = 76
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
