package main

import (
	"github.com/spf13/cobra"

	"github.com/sapliy/status-relay/internal/notification"
)

// notificationFlags holds the flag values shared by send and preview.
type notificationFlags struct {
	id, reqType, name, email, status string
	reason, entrance, out, timeOfDay string
	days                             int
}

func (f *notificationFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.id, "id", "", "request id")
	fs.StringVar(&f.reqType, "type", "", "request type, e.g. Leave")
	fs.StringVar(&f.name, "name", "", "requester name")
	fs.StringVar(&f.email, "email", "", "requester email address")
	fs.StringVar(&f.status, "status", "", "new status, e.g. Approved")
	fs.StringVar(&f.reason, "reason", notification.DefaultReason, "reason or details")
	fs.IntVar(&f.days, "days", notification.DefaultDays, "number of days")
	fs.StringVar(&f.entrance, "entrance", notification.DefaultEntrance, "start date")
	fs.StringVar(&f.out, "out", notification.DefaultOut, "end date")
	fs.StringVar(&f.timeOfDay, "time", "", "optional time")
}

// build returns the validated notification described by the flags.
func (f *notificationFlags) build() (*notification.StatusNotification, error) {
	n := &notification.StatusNotification{
		ID:       f.id,
		Type:     f.reqType,
		Name:     f.name,
		Email:    f.email,
		Status:   f.status,
		Reason:   f.reason,
		Days:     f.days,
		Entrance: f.entrance,
		Out:      f.out,
	}
	if f.timeOfDay != "" {
		t := f.timeOfDay
		n.Time = &t
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
