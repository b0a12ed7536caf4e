package notify

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// EmailChannel sends plain-text event mail over SMTP.
type EmailChannel struct {
	addr string // host:port
	from string
}

func NewEmailChannel(addr, from string) *EmailChannel {
	if addr == "" {
		return nil
	}
	return &EmailChannel{addr: addr, from: from}
}

func (e *EmailChannel) Name() string { return ChannelEmail }

func (e *EmailChannel) Send(to string, ev Event) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.from, to, subjectFor(ev.Type), bodyFor(ev))
	return smtp.SendMail(e.addr, nil, e.from, []string{to}, []byte(msg))
}

func subjectFor(eventType string) string {
	switch eventType {
	case EventOrderCreated:
		return "Your VoltMart order is confirmed"
	case EventOrderCancelled:
		return "Your VoltMart order was cancelled"
	case EventTicketCreated:
		return "Your service visit is booked"
	case EventTicketAssigned:
		return "A technician has been assigned"
	case EventTicketCancelled:
		return "Your service visit was cancelled"
	case EventTicketCompleted:
		return "Your service visit is complete"
	}
	return "VoltMart update"
}

func bodyFor(ev Event) string {
	keys := make([]string, 0, len(ev.Payload))
	for k := range ev.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, ev.Payload[k])
	}
	fmt.Fprintf(&b, "\r\nSent %s\r\n", ev.OccurredAt.Format("2006-01-02 15:04 MST"))
	return b.String()
}
