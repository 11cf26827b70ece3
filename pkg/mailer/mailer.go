package mailer

import (
	"fmt"
	"log"

	gomail "gopkg.in/gomail.v2"

	"trivial-go/configs"
)

// Mailer mengirim email kode verifikasi.
// Jika SMTP_HOST kosong, mailer berjalan dalam dry mode:
// kode hanya dicatat di log, tidak ada email yang dikirim.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg configs.Config) *Mailer {
	m := &Mailer{from: cfg.SMTPFrom}
	if cfg.SMTPHost != "" {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return m
}

// SendVerificationCode mengirim kode 6 digit ke alamat email user,
// dalam format plain text dengan alternatif HTML.
func (m *Mailer) SendVerificationCode(to, name, code string) error {
	if m.dialer == nil {
		log.Printf("mailer dry mode: verification code for %s is %s", to, code)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your verification code")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s.\n\nEnter it to activate your account.", name, code))
	msg.AddAlternative("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <b>%s</b>.</p><p>Enter it to activate your account.</p>", name, code))

	return m.dialer.DialAndSend(msg)
}
