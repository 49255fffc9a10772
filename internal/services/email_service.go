package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// EmailService delivers verification codes over SMTP.
type EmailService struct {
	host     string
	port     int
	username string
	password string
}

// NewEmailService creates a new EmailService.
func NewEmailService(host string, port int, username, password string) *EmailService {
	return &EmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

// SendCode emails the verification code to the recipient.
func (s *EmailService) SendCode(email, code string) error {
	if s.host == "" {
		log.Println("[Email] SMTP not configured")
		return nil
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.username))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", email))
	msg.WriteString("Subject: Your verification code\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Your verification code is: %s\r\n", code))

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.username, []string{email}, []byte(msg.String())); err != nil {
		log.Printf("[Email] Failed to send code: %v", err)
		return err
	}

	return nil
}
