package auth

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"

	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

// LoadEmailConfig loads email configuration from environment
func LoadEmailConfig() *models.EmailConfig {
	return &models.EmailConfig{
		SMTPHost:    utils.GetEnvOrDefault("SMTP_HOST", "localhost"),
		SMTPPort:    utils.GetEnvInt("SMTP_PORT", 465),
		Username:    utils.GetEnvOrDefault("SMTP_USERNAME", ""),
		Password:    utils.GetEnvOrDefault("SMTP_PASSWORD", ""),
		FromAddress: utils.GetEnvOrDefault("FROM_EMAIL", "noreply@brandarchetype.local"),
		FromName:    utils.GetEnvOrDefault("FROM_NAME", "Brand Archetype Assessment"),
		BaseURL:     utils.GetEnvOrDefault("BASE_URL", "http://localhost:8044"),
	}
}

// EmailService handles email sending
type EmailService struct {
	config *models.EmailConfig
}

func NewEmailService(config *models.EmailConfig) *EmailService {
	return &EmailService{config: config}
}

func (es *EmailService) BuildInviteEmail(invite *models.Invite, inviterName string) (string, string) {
	inviteURL := fmt.Sprintf("%s/register?invite=%s", es.config.BaseURL, url.QueryEscape(invite.Token))

	subject := "You've been invited to discover your brand archetype"
	body := fmt.Sprintf(`Hello,

%s has invited you to take the Brand Archetype Assessment.

Click the link below to create your account and get started:
%s

This invite expires in 7 days.

If you weren't expecting this invitation, you can safely ignore this email.

Best regards,
The Brand Archetype Team`, inviterName, inviteURL)

	return subject, body
}

func (es *EmailService) BuildResultEmail(user *models.User, result *models.AssessmentResult) (string, string) {
	subject := fmt.Sprintf("Your brand archetype: %s", result.Primary.Archetype)
	body := fmt.Sprintf(`Hello %s,

Your assessment is complete!

Primary archetype:   %s (%.1f%%)
Secondary archetype: %s (%.1f%%)
Confidence:          %.0f%%

%s

Log in to see the full breakdown across all twelve archetypes:
%s/results

Best regards,
The Brand Archetype Team`, user.Username,
		result.Primary.Archetype, result.Primary.Percentage,
		result.Secondary.Archetype, result.Secondary.Percentage,
		result.Confidence, result.Primary.Description, es.config.BaseURL)

	return subject, body
}

func (es *EmailService) SendEmail(to, subject, body string) error {
	if es.config.Username == "" || es.config.Password == "" {
		utils.LogInfo("SMTP not configured, logging email instead")
		utils.LogInfo("=== EMAIL ===")
		utils.LogInfo("To: %s", to)
		utils.LogInfo("Subject: %s", subject)
		utils.LogInfo("Body: %s", body)
		utils.LogInfo("=============")
		return nil
	}

	return es.sendEmail(to, subject, body)
}

// sendEmail sends an email using SMTP with SSL support
func (es *EmailService) sendEmail(to, subject, body string) error {
	utils.LogInfo("Sending email to %s: %s", to, subject)

	message := fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", es.config.FromName, es.config.FromAddress, to, subject, body)

	addr := fmt.Sprintf("%s:%d", es.config.SMTPHost, es.config.SMTPPort)

	var conn net.Conn
	var err error

	if es.config.SMTPPort == 465 {
		// Port 465 uses implicit SSL (SMTPS)
		utils.LogDebug("Connecting to SMTP server %s with SSL", addr)
		tlsConfig := &tls.Config{
			ServerName: es.config.SMTPHost,
		}
		conn, err = tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			utils.LogError("Failed to establish SSL connection to %s: %v", addr, err)
			return err
		}
	} else {
		// Port 587 or 25 uses plain connection with STARTTLS
		utils.LogDebug("Connecting to SMTP server %s (plain)", addr)
		conn, err = net.Dial("tcp", addr)
		if err != nil {
			utils.LogError("Failed to connect to %s: %v", addr, err)
			return err
		}
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, es.config.SMTPHost)
	if err != nil {
		utils.LogError("Failed to create SMTP client: %v", err)
		return err
	}
	defer client.Quit()

	if es.config.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName: es.config.SMTPHost,
			}
			if err = client.StartTLS(tlsConfig); err != nil {
				utils.LogError("Failed to start TLS: %v", err)
				return err
			}
			utils.LogDebug("STARTTLS initiated successfully")
		}
	}

	smtpAuth := smtp.PlainAuth("", es.config.Username, es.config.Password, es.config.SMTPHost)
	if err = client.Auth(smtpAuth); err != nil {
		utils.LogError("SMTP authentication failed: %v", err)
		return err
	}

	if err = client.Mail(es.config.FromAddress); err != nil {
		utils.LogError("Failed to set sender: %v", err)
		return err
	}

	if err = client.Rcpt(to); err != nil {
		utils.LogError("Failed to set recipient: %v", err)
		return err
	}

	writer, err := client.Data()
	if err != nil {
		utils.LogError("Failed to open data writer: %v", err)
		return err
	}
	defer writer.Close()

	if _, err = writer.Write([]byte(message)); err != nil {
		utils.LogError("Failed to write message: %v", err)
		return err
	}

	utils.LogInfo("Email sent successfully to %s", to)
	return nil
}
