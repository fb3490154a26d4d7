// Package mailer delivers scan reports by email with the rendered PDF
// attached.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/internal/config"
)

// ReportMail is one outbound report delivery request. PDFBase64 carries the
// already-rendered report as produced by the frontend exporter.
type ReportMail struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	PDFBase64 string `json:"pdf_base64"`
	Filename  string `json:"filename"`
}

// Mailer sends report mail over SMTP with STARTTLS.
type Mailer struct {
	cfg    config.MailerConfig
	logger *zap.Logger
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a mailer from configuration.
func New(cfg config.MailerConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger.Named("mailer"),
		send:   smtp.SendMail,
	}
}

// SendReport validates, assembles and sends one report mail.
func (m *Mailer) SendReport(mail ReportMail) error {
	if mail.To == "" || mail.Subject == "" || mail.Body == "" || mail.PDFBase64 == "" || mail.Filename == "" {
		return fmt.Errorf("missing fields in report mail request")
	}

	pdf, err := base64.StdEncoding.DecodeString(mail.PDFBase64)
	if err != nil {
		return fmt.Errorf("invalid PDF payload: %w", err)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg, err := buildMessage(from, mail, pdf)
	if err != nil {
		return fmt.Errorf("failed to build mail message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, from, []string{mail.To}, msg); err != nil {
		return fmt.Errorf("failed to send report mail: %w", err)
	}

	m.logger.Info("Report mail sent", zap.String("to", mail.To), zap.String("filename", mail.Filename))
	return nil
}

// buildMessage assembles a multipart/mixed message: a plain-text body part
// and the PDF as a base64 attachment.
func buildMessage(from string, mail ReportMail, pdf []byte) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: VulnSight <%s>\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", mail.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mail.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textPart, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(mail.Body)); err != nil {
		return nil, err
	}

	pdfHeader := textproto.MIMEHeader{}
	pdfHeader.Set("Content-Type", "application/pdf")
	pdfHeader.Set("Content-Transfer-Encoding", "base64")
	pdfHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", mail.Filename))
	pdfPart, err := mw.CreatePart(pdfHeader)
	if err != nil {
		return nil, err
	}
	if err := writeBase64Wrapped(pdfPart, pdf); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Wrapped encodes data in 76-column base64 lines per RFC 2045.
func writeBase64Wrapped(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if len(encoded) < n {
			n = len(encoded)
		}
		if _, err := w.Write([]byte(encoded[:n])); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
