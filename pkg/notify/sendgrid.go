package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sendgrid/rest"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridHost = "https://api.sendgrid.com"

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridConfig contains configuration for e-mail notifications.
type SendGridConfig struct {
	APIKey    string
	FromName  string
	FromEmail string
}

// SendGridNotifier e-mails the download link to the request's recipient.
type SendGridNotifier struct {
	config *SendGridConfig
	client mailSender
	logger *slog.Logger
}

// NewSendGridNotifier creates a notifier sending through the SendGrid v3 API.
func NewSendGridNotifier(config *SendGridConfig) (*SendGridNotifier, error) {
	if config == nil || config.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if config.FromEmail == "" {
		return nil, errors.New("sendgrid sender address is required")
	}
	return newSendGridNotifier(config, sendgrid.NewSendClient(config.APIKey)), nil
}

func newSendGridNotifier(config *SendGridConfig, client mailSender) *SendGridNotifier {
	return &SendGridNotifier{
		config: config,
		client: client,
		logger: slog.Default().With("component", "notify.sendgrid"),
	}
}

// Notify sends the download link. Events without a recipient are skipped.
func (n *SendGridNotifier) Notify(ctx context.Context, event Event) error {
	if event.Recipient == "" {
		n.logger.Debug("no recipient, skipping e-mail", "export_id", event.ExportID)
		return nil
	}

	subject := fmt.Sprintf("Your %s export is ready", event.Label)
	body := fmt.Sprintf("Your export of %d %s has finished.\n\nDownload it here: %s\n",
		event.Rows, event.Label, event.Reference.Location)

	message := mail.NewSingleEmailPlainText(
		mail.NewEmail(n.config.FromName, n.config.FromEmail),
		subject,
		mail.NewEmail("", event.Recipient),
		body,
	)

	response, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return &DeliveryError{Backend: "sendgrid", Recipient: event.Recipient, Cause: err}
	}
	if response.StatusCode >= 300 {
		return &DeliveryError{Backend: "sendgrid", Recipient: event.Recipient,
			Cause: errors.New("response code " + strconv.Itoa(response.StatusCode))}
	}

	n.logger.Info("export link sent", "export_id", event.ExportID, "recipient", event.Recipient)
	return nil
}

// ValidateKey checks the API key against the scopes endpoint.
func ValidateKey(apiKey string) error {
	request := sendgrid.GetRequest(apiKey, "/v3/scopes", sendgridHost)
	request.Method = "GET"
	response, err := sendgrid.API(request)
	if err != nil {
		return err
	}
	if response.StatusCode >= 300 {
		return errors.New("response code " + strconv.Itoa(response.StatusCode))
	}
	return nil
}
