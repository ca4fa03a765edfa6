package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"storefront/events"
	"storefront/models"

	"go.uber.org/zap"
)

var welcomeTmpl = template.Must(template.New("welcome.txt").Parse(`Hello {{.Name}},

Welcome to the store! Your account has been created and you are signed in.

Browse the products and place an order here:
{{.SiteURL}}

If you have any questions, reply to this email and our support team will help.

Happy shopping!
`))

// ComposeWelcome builds the greeting sent after registration. The first name
// is used when known, the email otherwise.
func ComposeWelcome(u *models.User, siteURL string) (Message, error) {
	name := u.FirstName
	if name == "" {
		name = u.Email
	}
	var text bytes.Buffer
	err := welcomeTmpl.Execute(&text, struct{ Name, SiteURL string }{name, strings.TrimRight(siteURL, "/")})
	if err != nil {
		return Message{}, fmt.Errorf("render welcome: %w", err)
	}
	return Message{To: u.Email, Subject: "Welcome to the store", Text: text.String()}, nil
}

type Welcomer struct {
	mailer  Mailer
	log     *zap.Logger
	siteURL string
}

func NewWelcomer(mailer Mailer, log *zap.Logger, siteURL string) *Welcomer {
	return &Welcomer{mailer: mailer, log: log, siteURL: siteURL}
}

// Handle consumes UserRegistered. Failures are returned to the dispatcher,
// which logs them; the account is already stored.
func (w *Welcomer) Handle(ctx context.Context, e events.Event) error {
	registered, ok := e.(events.UserRegistered)
	if !ok || registered.User.Email == "" {
		return nil
	}
	msg, err := ComposeWelcome(&registered.User, w.siteURL)
	if err != nil {
		return err
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send welcome to user %d: %w", registered.User.ID, err)
	}
	w.log.Info("Welcome email sent", zap.Uint("user_id", registered.User.ID))
	return nil
}
