package email

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/tacss32/dalitmurasu-sub000/config"
)

const dateLayout = "02 Jan 2006"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg  *config.EmailConfig
	send sendFunc
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, send: smtp.SendMail}
}

func (s *Service) siteName() string {
	if s.cfg.SiteName == "" {
		return "Subscriptions"
	}
	return s.cfg.SiteName
}

// FormatAmount 把最小货币单位转换为展示金额，例如 49900 INR -> "499.00 INR"
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}

// SendSubscriptionConfirmation 支付成功后的订阅确认邮件
func (s *Service) SendSubscriptionConfirmation(to, name, planTitle string, amount int64, currency string, expiry time.Time) error {
	subject := fmt.Sprintf("Subscription confirmed - %s", s.siteName())
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Thank you for subscribing</h2>
        <p>Hello %s,</p>
        <p>Your payment for the <strong>%s</strong> plan has been received.</p>
        <table style="background-color: #f3f4f6; padding: 15px; margin: 20px 0; width: 100%%;">
            <tr><td>Amount paid</td><td><strong>%s</strong></td></tr>
            <tr><td>Valid until</td><td><strong>%s</strong></td></tr>
        </table>
        <p>You now have full access to all subscriber content.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(planTitle), FormatAmount(amount, currency), expiry.Format(dateLayout))

	return s.sendHTML(to, subject, body)
}

// SendExpiryReminder 到期前提醒
func (s *Service) SendExpiryReminder(to, name, planTitle string, expiry time.Time) error {
	subject := fmt.Sprintf("Your subscription expires soon - %s", s.siteName())
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #d97706;">Subscription expiring</h2>
        <p>Hello %s,</p>
        <p>Your <strong>%s</strong> plan expires on <strong>%s</strong>.</p>
        <p>Renew before that date to keep uninterrupted access. A renewal starts right after your current plan ends.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(planTitle), expiry.Format(dateLayout))

	return s.sendHTML(to, subject, body)
}

// SendPostExpiryNotice 到期后通知
func (s *Service) SendPostExpiryNotice(to, name, planTitle string) error {
	subject := fmt.Sprintf("Your subscription has ended - %s", s.siteName())
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #dc2626;">Subscription ended</h2>
        <p>Hello %s,</p>
        <p>Your <strong>%s</strong> plan has expired. Subscriber-only content is now shown as a preview.</p>
        <p>Subscribe again any time to restore full access.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(planTitle))

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email: empty recipient")
	}

	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.send(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
