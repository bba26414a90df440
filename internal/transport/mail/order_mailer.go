package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var ErrMailerNotConfigured = errors.New("mailer missing configuration")

// OrderMailer sends purchase orders over SMTP. Without credentials it runs
// in simulation mode and only reports what would have been sent.
type OrderMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	now      func() time.Time
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewOrderMailer(host, port, username, password, from string) *OrderMailer {
	from = strings.TrimSpace(from)
	if from == "" {
		from = strings.TrimSpace(username)
	}
	return &OrderMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     from,
		now:      time.Now,
		send:     smtp.SendMail,
	}
}

func (m *OrderMailer) Simulated() bool {
	return m.username == "" || m.password == ""
}

// Send delivers the message and returns its message id. The boolean
// reports whether the send was simulated.
func (m *OrderMailer) Send(ctx context.Context, msg domain.OutgoingEmail) (string, bool, error) {
	if m == nil {
		return "", false, ErrMailerNotConfigured
	}
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	default:
	}

	if m.Simulated() {
		return fmt.Sprintf("simulation-%d", m.now().UnixMilli()), true, nil
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return "", false, ErrMailerNotConfigured
	}

	messageID := fmt.Sprintf("<%d.%s>", m.now().UnixNano(), m.domain())
	raw, err := m.build(msg, messageID)
	if err != nil {
		return "", false, err
	}

	addr := net.JoinHostPort(m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := m.send(addr, auth, m.from, []string{msg.To}, raw); err != nil {
		return "", false, err
	}
	return messageID, false, nil
}

func (m *OrderMailer) domain() string {
	if _, host, ok := strings.Cut(m.from, "@"); ok && host != "" {
		return strings.TrimSuffix(host, ">")
	}
	return m.host
}

// build renders a multipart/mixed message: a text and html alternative
// followed by the base64 attachment.
func (m *OrderMailer) build(msg domain.OutgoingEmail, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	mixed := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	var altBuf bytes.Buffer
	alt := multipart.NewWriter(&altBuf)
	if err := writeBase64Part(alt, "text/plain; charset=UTF-8", nil, []byte(msg.Body)); err != nil {
		return nil, err
	}
	htmlBody := strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>")
	if err := writeBase64Part(alt, "text/html; charset=UTF-8", nil, []byte(htmlBody)); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}

	altHeader := textproto.MIMEHeader{}
	altHeader.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
	part, err := mixed.CreatePart(altHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(altBuf.Bytes()); err != nil {
		return nil, err
	}

	if len(msg.Attachment) > 0 {
		name := mime.BEncoding.Encode("UTF-8", msg.AttachmentName)
		extra := textproto.MIMEHeader{}
		extra.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		if err := writeBase64Part(mixed, fmt.Sprintf("%s; name=%q", xlsxContentType, name), extra, msg.Attachment); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBase64Part(w *multipart.Writer, contentType string, extra textproto.MIMEHeader, data []byte) error {
	header := textproto.MIMEHeader{}
	for k, v := range extra {
		header[k] = v
	}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "base64")
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(part, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err = fmt.Fprintf(part, "%s\r\n", encoded)
	return err
}
