// Package mail delivers OTP codes and reset tokens. Delivery is best effort:
// callers hand messages to a Dispatcher and never wait on the transport.
package mail

import (
	"context"
	"fmt"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is a mail transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func OTPMessage(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your strongbox sign-in code",
		Body: fmt.Sprintf(
			"Your sign-in code is %s. It expires in %d minutes and can be used once.\n",
			code, int(ttl.Minutes()),
		),
	}
}

func PasswordResetMessage(to, token, resetURL string, ttl time.Duration) Message {
	body := fmt.Sprintf("Use this token to reset your password: %s\n", token)
	if resetURL != "" {
		body = fmt.Sprintf("Reset your password here: %s?token=%s\n", resetURL, token)
	}
	body += fmt.Sprintf("It expires in %d minutes. If you did not ask for a reset, ignore this message.\n", int(ttl.Minutes()))
	return Message{To: to, Subject: "Reset your strongbox password", Body: body}
}
