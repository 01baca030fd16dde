package email

import (
	"fmt"
	"strconv"
)

// ProcessEvent describes a card making process change for one client request.
type ProcessEvent struct {
	Event     string
	ClientID  int64
	OIB       int64
	FirstName string
	LastName  string
	Status    string
}

// SendProcessNotification tells the operator that a process started or stopped.
func (c *Client) SendProcessNotification(to string, ev ProcessEvent) error {
	data := map[string]string{
		"Event":     ev.Event,
		"ClientID":  strconv.FormatInt(ev.ClientID, 10),
		"OIB":       strconv.FormatInt(ev.OIB, 10),
		"FirstName": ev.FirstName,
		"LastName":  ev.LastName,
		"Status":    ev.Status,
	}

	subject := fmt.Sprintf("Card making process %s for Client request ID: %d", ev.Event, ev.ClientID)
	return c.SendEmail(to, subject, TemplateProcessEvent, data)
}
