package service

import (
	"context"
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer 发送账号相关邮件
type Mailer interface {
	SendTemporaryPassword(ctx context.Context, user *model.User, password string) error
}

type SendGridMailer struct {
	Client *sendgrid.Client
	From   *mail.Email
}

// NewMailer 未配置 API Key 时返回只写日志的实现
func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.SendGridAPIKey == "" || cfg.FromEmail == "" {
		return logMailer{}
	}
	return &SendGridMailer{
		Client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		From:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (m *SendGridMailer) SendTemporaryPassword(ctx context.Context, user *model.User, password string) error {
	to := mail.NewEmail(user.Name, user.Email)
	subject := "Your learning platform account"
	text := fmt.Sprintf("Hello %s,\n\nAn account has been created for you.\nEmail: %s\nTemporary password: %s\n\nYou will be asked to change it on first login.\n",
		user.Name, user.Email, password)

	resp, err := m.Client.SendWithContext(ctx, mail.NewSingleEmail(m.From, subject, to, text, ""))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type logMailer struct{}

func (logMailer) SendTemporaryPassword(ctx context.Context, user *model.User, password string) error {
	logger.Log.Info("Mail delivery disabled, temporary password not sent",
		zap.Uint("userID", user.ID),
		zap.String("email", user.Email),
	)
	return nil
}
