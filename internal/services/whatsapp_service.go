package services

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// WhatsAppService delivers verification codes over WhatsApp via the
// Twilio Messages API.
type WhatsAppService struct {
	accountSID string
	authToken  string
	from       string
}

// NewWhatsAppService creates a new WhatsAppService.
func NewWhatsAppService(accountSID, authToken, from string) *WhatsAppService {
	return &WhatsAppService{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
	}
}

// SendCode sends the verification code to the phone number.
func (s *WhatsAppService) SendCode(phone, code string) error {
	if s.accountSID == "" {
		log.Println("[WhatsApp] Twilio credentials not configured")
		return nil
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", "whatsapp:"+phone)
	form.Set("Body", fmt.Sprintf("Your verification code is: %s", code))

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("[WhatsApp] Failed to send code: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		log.Printf("[WhatsApp] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}

	return nil
}
