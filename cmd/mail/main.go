package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/brokerdesk/backoffice/backend/internal/config"
	"github.com/brokerdesk/backoffice/backend/internal/events"
	"github.com/brokerdesk/backoffice/backend/internal/mailer"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("cannot load configuration", slog.String("error", err.Error()))
		return
	}

	composer, err := mailer.NewComposer(cfg.Email.SMTP.Username, cfg.Email.TemplateDir)
	if err != nil {
		logger.Error("cannot load mail templates", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * SMTP client
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("cannot create mail client", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer dialCancel()
	if err := client.DialWithContext(dialCtx); err != nil {
		logger.Error("cannot reach mail server", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("cannot connect to rabbitmq", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("cannot open channel", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	if err := events.DeclareQueues(ch); err != nil {
		logger.Error("cannot declare queues", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// manual acks so failed sends go back to the queue
	msgs, err := ch.Consume(events.MailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Error("cannot consume mail queue", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-msgs:
				if !ok {
					logger.Error("mail queue closed")
					return
				}

				msg, err := composer.Compose(delivery.Body)
				if err != nil {
					logger.Error("dropping mail", slog.String("error", err.Error()))
					_ = delivery.Nack(false, false)
					continue
				}

				if err := client.DialAndSendWithContext(ctx, msg); err != nil {
					logger.Error("cannot send mail", slog.String("error", err.Error()))
					_ = delivery.Nack(false, true)
					continue
				}

				_ = delivery.Ack(false)
			}
		}
	}()

	logger.Info("waiting for mail (CTRL+C to quit)")
	<-sigChan

	logger.Info("stopping mail worker")
	cancel()
	wg.Wait()
	logger.Info("mail worker stopped")
}
