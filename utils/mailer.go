package utils

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oakhaven/storefront/config"
	"github.com/oakhaven/storefront/models"
)

// Forwarder hands an accepted contact or sample request to the sales team.
type Forwarder interface {
	Forward(ctx context.Context, sub models.ContactSubmission) error
}

// NewForwarder returns an SMTP forwarder when SMTP and a recipient are configured, otherwise a log-only one.
func NewForwarder(cfg config.AppConfig) Forwarder {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" || cfg.NotifyTo == "" {
		Logger.Warn("smtp not configured, submissions will only be logged")
		return LogForwarder{}
	}
	return &SMTPForwarder{cfg: cfg}
}

// LogForwarder records submissions in the application log.
type LogForwarder struct{}

func (LogForwarder) Forward(_ context.Context, sub models.ContactSubmission) error {
	Logger.Info("submission received",
		zap.String("form", sub.Form),
		zap.String("name", sub.Name),
		zap.String("service", sub.Service),
		zap.String("product", sub.Product),
		zap.Int("images", len(sub.Images)),
		zap.String("ip", sub.ClientIP))
	return nil
}

// SMTPForwarder mails each submission, with uploads attached, to NotifyTo.
type SMTPForwarder struct {
	cfg config.AppConfig
}

func (f *SMTPForwarder) Forward(ctx context.Context, sub models.ContactSubmission) error {
	msg, err := buildSubmissionMessage(f.cfg, sub)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- sendMail(f.cfg, f.cfg.NotifyTo, msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("forward %s submission: %w", sub.Form, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func submissionSubject(sub models.ContactSubmission) string {
	kind := "Contact request"
	if sub.Form == models.FormSample {
		kind = "Sample request"
	}
	return fmt.Sprintf("%s from %s", kind, sub.Name)
}

func submissionBody(sub models.ContactSubmission) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Name", sub.Name)
	line("Email", sub.Email)
	line("Phone", sub.Phone)
	line("Postcode", sub.Postcode)
	line("Address", sub.Address)
	line("Service", sub.Service)
	line("Product", sub.Product)
	line("Received", sub.ReceivedAt.UTC().Format(time.RFC3339))
	line("IP", sub.ClientIP)
	if sub.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", sub.Message)
	}
	if sub.ChatSummary != "" {
		fmt.Fprintf(&b, "\nChat summary:\n%s\n", sub.ChatSummary)
	}
	return b.String()
}

// buildSubmissionMessage renders a multipart/mixed message with the text body first and one part per upload.
func buildSubmissionMessage(cfg config.AppConfig, sub models.ContactSubmission) ([]byte, error) {
	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "Storefront"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64Lines(textPart, []byte(submissionBody(sub))); err != nil {
		return nil, err
	}

	for _, img := range sub.Images {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {img.MimeType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": img.Name})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, img.Content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	headers := []struct{ k, v string }{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), cfg.SMTPFrom)},
		{"To", cfg.NotifyTo},
		{"Reply-To", sub.Email},
		{"Subject", mime.BEncoding.Encode("UTF-8", submissionSubject(sub))},
		{"Date", sub.ReceivedAt.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/mixed; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h.k, h.v)
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// writeBase64Lines writes RFC 2045 base64 wrapped at 76 columns.
func writeBase64Lines(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := w.Write([]byte(enc[:76] + "\r\n")); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := w.Write([]byte(enc + "\r\n"))
	return err
}

func sendMail(cfg config.AppConfig, to string, msg []byte) error {
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return errors.New("smtp not configured")
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)

	if !cfg.SMTPTLS {
		return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if cfg.SMTPUsername != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.SMTPFrom); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}
