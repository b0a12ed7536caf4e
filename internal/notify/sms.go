package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSChannel posts short messages to an HTTP SMS gateway.
type SMSChannel struct {
	gatewayURL string
	client     *http.Client
}

func NewSMSChannel(gatewayURL string) *SMSChannel {
	if gatewayURL == "" {
		return nil
	}
	return &SMSChannel{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SMSChannel) Name() string { return ChannelSMS }

func (s *SMSChannel) Send(to string, ev Event) error {
	form := url.Values{
		"to":      {to},
		"message": {smsText(ev)},
	}
	resp, err := s.client.PostForm(s.gatewayURL, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %s", resp.Status)
	}
	return nil
}

func smsText(ev Event) string {
	var b strings.Builder
	b.WriteString(subjectFor(ev.Type))
	if id, ok := ev.Payload["order_id"]; ok {
		fmt.Fprintf(&b, " (order %v)", id)
	} else if id, ok := ev.Payload["ticket_id"]; ok {
		fmt.Fprintf(&b, " (ticket %v)", id)
	}
	if code, ok := ev.Payload["completion_code"]; ok {
		fmt.Fprintf(&b, ". Your completion code is %v, share it only when the job is done", code)
	}
	b.WriteString(".")
	return b.String()
}
