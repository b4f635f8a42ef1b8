package core

import (
	"context"
	"strings"
)

// SMSService is any service that can send text messages.
type SMSService interface {
	SendSMS(ctx context.Context, to, body string) error
}

// E164 prefixes a phone number with "+" unless it already has one.
func E164(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
