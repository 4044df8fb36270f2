package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"github.com/marketinni/backend/config"
)

// PriceAlertEmail carries the fields rendered into the alert email
type PriceAlertEmail struct {
	Email        string
	Symbol       string
	Company      string
	CurrentPrice string
	TargetPrice  string
	Direction    string // upper or lower
	Timestamp    string
}

const priceAlertTemplate = `
<div style="font-family:Arial,sans-serif;max-width:520px;margin:0 auto;padding:24px;background:#0f1115;color:#e5e7eb;border-radius:8px">
  <h2 style="margin:0 0 4px">{{.Symbol}} price alert</h2>
  <p style="color:#9ca3af;margin:0 0 16px">{{.Company}}</p>
  {{if eq .Direction "upper"}}
  <p><strong>{{.Symbol}}</strong> is trading at <strong>{{.CurrentPrice}}</strong>, at or above your target of {{.TargetPrice}}.</p>
  {{else}}
  <p><strong>{{.Symbol}}</strong> is trading at <strong>{{.CurrentPrice}}</strong>, at or below your target of {{.TargetPrice}}.</p>
  {{end}}
  <p style="color:#9ca3af;font-size:13px">{{.Timestamp}}</p>
  <p style="color:#9ca3af;font-size:12px;margin-top:24px">You set this alert on Marketinni. Open your alerts page to adjust or disable it.</p>
</div>`

// EmailService sends notification emails over SMTP
type EmailService struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

// Global email service instance
var GlobalEmailService *EmailService

// InitEmailService initializes the global SMTP email service
func InitEmailService() error {
	cfg := config.AppConfig

	tmpl, err := template.New("price_alert").Parse(priceAlertTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse price alert template: %w", err)
	}

	GlobalEmailService = &EmailService{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.EmailFrom,
		tmpl:   tmpl,
	}

	if cfg.SMTPUser == "" {
		log.Println("SMTP_USER not set, alert emails will fail to send")
	}

	log.Println("Email service initialized")
	return nil
}

// SendPriceAlert sends one price alert email
func (s *EmailService) SendPriceAlert(msg PriceAlertEmail) error {
	var body bytes.Buffer
	if err := s.tmpl.Execute(&body, msg); err != nil {
		return fmt.Errorf("failed to render price alert email: %w", err)
	}

	direction := "below"
	if msg.Direction == "upper" {
		direction = "above"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", fmt.Sprintf("%s is %s your target of %s", msg.Symbol, direction, msg.TargetPrice))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send price alert to %s: %w", msg.Email, err)
	}
	return nil
}

// FormatPrice renders a price the way the emails display currency
func FormatPrice(price float64) string {
	return "$" + decimal.NewFromFloat(price).StringFixed(2)
}

// FormatAlertTimestamp renders the trigger time for the email footer
func FormatAlertTimestamp(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}
