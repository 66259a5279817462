// loyalty-club-service/services/notifier.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers member-facing messages through the external notification
// service. Delivery failures are the caller's problem to log and swallow:
// a failed email never rolls back a ledger mutation.
type Notifier interface {
	Send(toAddress, subject, body string) error
}

type NotifyServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewNotifyServiceClient(baseURL, token string) *NotifyServiceClient {
	return &NotifyServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts a message to the notification service's /send endpoint.
func (c *NotifyServiceClient) Send(toAddress, subject, body string) error {
	url := fmt.Sprintf("%s/api/v1/notifications/send", c.BaseURL)

	reqBody := map[string]interface{}{
		"to":      toAddress,
		"subject": subject,
		"body":    body,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification service returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// LogNotifier writes notifications to the log instead of sending them.
// Used in development and in tests.
type LogNotifier struct{}

func (LogNotifier) Send(toAddress, subject, body string) error {
	log.Infof("[NOTIFY] to=%s subject=%q", toAddress, subject)
	return nil
}
