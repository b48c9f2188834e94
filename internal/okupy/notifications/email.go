// Пакет предоставляет функциональность для отправки почтовых уведомлений:
// писем активации новым пользователям и сообщений оператору об отказах
// внешних систем. Отправка асинхронная, через пул воркеров.
//
// Основные возможности:
//   - Письмо со ссылкой активации после постановки заявки в очередь.
//   - Письмо оператору при недоступности каталога во время активации.
//   - Пул воркеров с общим каналом и корректной остановкой.
package notifications

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/config"
	"gopkg.in/gomail.v2"
)

// Mailer - интерфейс почтовых уведомлений приложения. В тестах
// подменяется фейком.
type Mailer interface {
	// SendActivation отправляет письмо со ссылкой активации заявки.
	SendActivation(to string, firstName string, token string) error
	// SendOperatorError уведомляет оператора об отказе внешней системы.
	SendOperatorError(detail string) error
}

type EmailService struct {
	d        *gomail.Dialer
	cfg      *config.Config
	disabled bool

	emailChan chan mail
	eg        errgroup.Group
}

type mail struct {
	To      string
	Subject string
	Body    string
}

func NewEmailService(cfg *config.Config) *EmailService {
	es := &EmailService{
		d:         gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword),
		cfg:       cfg,
		emailChan: make(chan mail),
	}

	for i := 0; i < cfg.EmailWorkers; i++ {
		es.eg.Go(func() error {
			return es.worker(es.emailChan)
		})
	}

	return es
}

func (es *EmailService) Stop() {
	slog.Info("Closing email workers")
	es.disabled = true
	close(es.emailChan)

	if err := es.eg.Wait(); err != nil {
		slog.Error("Worker err", "err", err)
	}

	slog.Info("Email workers successfully stopped")
}

func (es *EmailService) sendEmail(e mail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", es.cfg.EmailFrom)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.Body)

	return es.d.DialAndSend(m)
}

func (es *EmailService) send(e mail) error {
	if es.disabled {
		return fmt.Errorf("email service stop")
	}
	es.emailChan <- e
	return nil
}

func (es *EmailService) worker(emailChan <-chan mail) error {
	for e := range emailChan {
		if err := es.sendEmail(e); err != nil {
			slog.Error("email send err", "to", e.To, "err", err)
		}
	}
	return nil
}

func (es *EmailService) SendActivation(to string, firstName string, token string) error {
	activationURL := es.cfg.WebURL.JoinPath("activate", token).String() + "/"

	body := fmt.Sprintf(
		"Hi %s,\n\nto activate your account, please follow the link below:\n\n%s\n\nIf you didn't request this account, just ignore this email.\n",
		firstName, activationURL)

	return es.send(mail{
		To:      to,
		Subject: es.cfg.EmailSubjectPrefix + "Account Activation",
		Body:    body,
	})
}

func (es *EmailService) SendOperatorError(detail string) error {
	if es.cfg.OperatorEmail == "" {
		slog.Warn("Operator email is not configured, dropping error notification", "detail", detail)
		return nil
	}

	return es.send(mail{
		To:      es.cfg.OperatorEmail,
		Subject: fmt.Sprintf("%sERROR: {'desc': '%s'}", es.cfg.EmailSubjectPrefix, detail),
		Body:    detail + "\n",
	})
}
