package main

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

var bookingCommands = map[string]command{
	"create": bookingsCreate,
	"mine":   bookingsMine,
	"all":    bookingsAll,
	"get":    bookingsGet,
	"cancel": bookingsCancel,
	"active": bookingsActive,
	"has":    bookingsHas,
}

func cmdBookings(ctx context.Context, a *app, args []string) error {
	cmd, rest, err := subcommand("bookings", args, bookingCommands)
	if err != nil {
		return err
	}
	return cmd(ctx, a, rest)
}

func bookingsCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("bookings create")
	slotID := fs.String("slot", "", "slot id to book")
	var notes optString
	fs.Var(&notes, "notes", "optional notes")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *slotID == "" {
		return usagef("-slot is required")
	}
	b, err := a.rt.Bookings.Create(ctx, model.BookingCreate{SlotID: *slotID, Notes: notes.v})
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, b)
	}
	fmt.Fprintf(a.out, "Booked slot %s (booking %s)\n", b.SlotID, b.ID)
	return nil
}

func pageFlags(a *app, name string) (*optInt, *optInt, func([]string) error) {
	fs := a.flags(name)
	skip, limit := &optInt{}, &optInt{}
	fs.Var(skip, "skip", "number of bookings to skip")
	fs.Var(limit, "limit", "maximum number of bookings")
	return skip, limit, func(args []string) error { return parse(fs, args) }
}

func bookingsMine(ctx context.Context, a *app, args []string) error {
	skip, limit, parseArgs := pageFlags(a, "bookings mine")
	if err := parseArgs(args); err != nil {
		return err
	}
	list, err := a.rt.Bookings.Mine(ctx, &model.BookingFilters{Skip: skip.v, Limit: limit.v})
	if err != nil {
		return err
	}
	return a.showBookings(list)
}

func bookingsAll(ctx context.Context, a *app, args []string) error {
	skip, limit, parseArgs := pageFlags(a, "bookings all")
	if err := parseArgs(args); err != nil {
		return err
	}
	list, err := a.rt.Bookings.All(ctx, &model.BookingFilters{Skip: skip.v, Limit: limit.v})
	if err != nil {
		return err
	}
	return a.showBookings(list)
}

func bookingsActive(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("bookings active takes no arguments")
	}
	list, err := a.rt.Bookings.Active(ctx)
	if err != nil {
		return err
	}
	return a.showBookings(list)
}

func bookingsGet(ctx context.Context, a *app, args []string) error {
	id, err := oneID(a.flags("bookings get"), args, "booking")
	if err != nil {
		return err
	}
	b, err := a.rt.Bookings.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, b)
	}
	printBooking(a.out, b)
	return nil
}

func bookingsCancel(ctx context.Context, a *app, args []string) error {
	id, err := oneID(a.flags("bookings cancel"), args, "booking")
	if err != nil {
		return err
	}
	if err := a.rt.Bookings.Cancel(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cancelled booking %s\n", id)
	return nil
}

func bookingsHas(ctx context.Context, a *app, args []string) error {
	slotID, err := oneID(a.flags("bookings has"), args, "slot")
	if err != nil {
		return err
	}
	has, err := a.rt.Bookings.HasBookingForSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, map[string]any{"slot_id": slotID, "booked": has})
	}
	fmt.Fprintln(a.out, has)
	return nil
}
