package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"maps"

	"github.com/souqify/auth-service/internal/otp"
	"github.com/souqify/auth-service/internal/pkg/clock"
	"github.com/souqify/auth-service/internal/pkg/instrument"
	"github.com/souqify/auth-service/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed templates/*.html
var templateFS embed.FS

type message struct {
	subject string
	tmpl    *template.Template
}

// Notifier renders OTP emails and sends them through a mail.Mail.
type Notifier struct {
	client   mail.Mail
	ins      instrument.Instrumentation
	clock    clock.Clocker
	appName  string
	messages map[otp.Purpose]message
}

func New(client mail.Mail, ins instrument.Instrumentation, clk clock.Clocker, appName string) (*Notifier, error) {
	subjects := map[otp.Purpose]string{
		otp.PurposeRegister:      "Verify your email",
		otp.PurposePasswordReset: "Reset your password",
	}

	messages := make(map[otp.Purpose]message, len(subjects))
	for purpose, subject := range subjects {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(purpose)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", purpose, err)
		}
		messages[purpose] = message{subject: subject, tmpl: tmpl}
	}

	return &Notifier{client: client, ins: ins, clock: clk, appName: appName, messages: messages}, nil
}

// Notify implements otp.Notifier.
func (n *Notifier) Notify(ctx context.Context, in otp.Notification) (err error) {
	ctx, span := n.ins.Tracer("auth.outbound.email").Start(ctx, "Notify")
	span.SetAttributes(attribute.String("otp.purpose", string(in.Purpose)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	msg, ok := n.messages[in.Purpose]
	if !ok {
		return fmt.Errorf("no email template for purpose %q", in.Purpose)
	}

	minutes := int(in.TTL.Minutes())
	data := map[string]any{}
	maps.Copy(data, in.Data)
	maps.Copy(data, map[string]any{
		"subject":     msg.subject,
		"code":        in.Code,
		"email":       in.Email,
		"name":        in.Name,
		"app_name":    n.appName,
		"year":        n.clock.Now().Year(),
		"ttl_minutes": minutes,
	})

	var body bytes.Buffer
	if err := msg.tmpl.ExecuteTemplate(&body, "layout", data); err != nil {
		return fmt.Errorf("render %s email: %w", in.Purpose, err)
	}

	return n.client.Send(ctx, mail.Message{
		To:       []string{in.Destination},
		Subject:  msg.subject,
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Your %s code is %s. It expires in %d minutes.", n.appName, in.Code, minutes),
	})
}
