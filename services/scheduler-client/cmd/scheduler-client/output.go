package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

const timeFormat = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func localTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeFormat)
}

func displayName(u *model.User) string {
	if u == nil {
		return "-"
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func (a *app) showSlots(list []model.Slot) error {
	if a.json {
		return printJSON(a.out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No slots found.")
		return nil
	}
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tTITLE\tSTART\tEND\tSPOTS\tSTATUS")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			s.ID, s.Title, localTime(s.StartTime), localTime(s.EndTime),
			s.AvailableSpots, s.MaxParticipants, slotStatus(s))
	}
	return w.Flush()
}

func slotStatus(s model.Slot) string {
	switch {
	case !s.IsAvailable:
		return "closed"
	case s.IsFull:
		return "full"
	default:
		return "open"
	}
}

func printSlot(out io.Writer, s *model.Slot) {
	w := newTable(out)
	fmt.Fprintf(w, "ID\t%s\n", s.ID)
	fmt.Fprintf(w, "Title\t%s\n", s.Title)
	if s.Description != nil {
		fmt.Fprintf(w, "Description\t%s\n", *s.Description)
	}
	fmt.Fprintf(w, "Start\t%s\n", localTime(s.StartTime))
	fmt.Fprintf(w, "End\t%s (%s)\n", localTime(s.EndTime), s.Duration())
	fmt.Fprintf(w, "Participants\t%d/%d\n", s.CurrentParticipants, s.MaxParticipants)
	fmt.Fprintf(w, "Status\t%s\n", slotStatus(*s))
	if s.Creator != nil {
		fmt.Fprintf(w, "Created by\t%s\n", displayName(s.Creator))
	}
	_ = w.Flush()
}

func (a *app) showBookings(list []model.Booking) error {
	if a.json {
		return printJSON(a.out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No bookings found.")
		return nil
	}
	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tSLOT\tSTATUS\tBOOKED\tNOTES")
	for _, b := range list {
		slot := b.SlotID
		if b.Slot != nil {
			slot = b.Slot.Title + " (" + localTime(b.Slot.StartTime) + ")"
		}
		notes := ""
		if b.Notes != nil {
			notes = *b.Notes
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, slot, b.Status, localTime(b.BookedAt), notes)
	}
	return w.Flush()
}

func printBooking(out io.Writer, b *model.Booking) {
	w := newTable(out)
	fmt.Fprintf(w, "ID\t%s\n", b.ID)
	fmt.Fprintf(w, "Slot\t%s\n", b.SlotID)
	if b.Slot != nil {
		fmt.Fprintf(w, "Slot title\t%s\n", b.Slot.Title)
		fmt.Fprintf(w, "Starts\t%s\n", localTime(b.Slot.StartTime))
	}
	fmt.Fprintf(w, "Status\t%s\n", b.Status)
	fmt.Fprintf(w, "Booked\t%s\n", localTime(b.BookedAt))
	if b.Cancelled() && b.CancelledAt != nil {
		fmt.Fprintf(w, "Cancelled\t%s\n", localTime(*b.CancelledAt))
	}
	if b.Notes != nil {
		fmt.Fprintf(w, "Notes\t%s\n", *b.Notes)
	}
	_ = w.Flush()
}

func printUser(out io.Writer, u *model.User) {
	w := newTable(out)
	fmt.Fprintf(w, "ID\t%s\n", u.ID)
	fmt.Fprintf(w, "Name\t%s\n", displayName(u))
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Role\t%s\n", u.Role)
	fmt.Fprintf(w, "Active\t%t\n", u.IsActive)
	_ = w.Flush()
}
