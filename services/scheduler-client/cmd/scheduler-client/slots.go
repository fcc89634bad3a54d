package main

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
)

var slotCommands = map[string]command{
	"list":      slotsList,
	"get":       slotsGet,
	"available": slotsAvailable,
	"today":     slotsToday,
	"upcoming":  slotsUpcoming,
	"create":    slotsCreate,
	"update":    slotsUpdate,
	"delete":    slotsDelete,
}

func cmdSlots(ctx context.Context, a *app, args []string) error {
	cmd, rest, err := subcommand("slots", args, slotCommands)
	if err != nil {
		return err
	}
	return cmd(ctx, a, rest)
}

type slotFilterFlags struct {
	skip, limit optInt
	available   optBool
	from, to    optTime
}

func (f *slotFilterFlags) filters() *model.SlotFilters {
	return &model.SlotFilters{
		Skip:          f.skip.v,
		Limit:         f.limit.v,
		AvailableOnly: f.available.v,
		StartDate:     f.from.v,
		EndDate:       f.to.v,
	}
}

func slotsList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("slots list")
	var f slotFilterFlags
	fs.Var(&f.skip, "skip", "number of slots to skip")
	fs.Var(&f.limit, "limit", "maximum number of slots")
	fs.Var(&f.available, "available", "only slots that can be booked")
	fs.Var(&f.from, "from", "earliest start time")
	fs.Var(&f.to, "to", "latest start time")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := a.rt.Slots.List(ctx, f.filters())
	if err != nil {
		return err
	}
	return a.showSlots(list)
}

func slotsAvailable(ctx context.Context, a *app, args []string) error {
	fs := a.flags("slots available")
	var f slotFilterFlags
	fs.Var(&f.skip, "skip", "number of slots to skip")
	fs.Var(&f.limit, "limit", "maximum number of slots")
	fs.Var(&f.from, "from", "earliest start time")
	fs.Var(&f.to, "to", "latest start time")
	if err := parse(fs, args); err != nil {
		return err
	}
	list, err := a.rt.Slots.Available(ctx, f.filters())
	if err != nil {
		return err
	}
	return a.showSlots(list)
}

func slotsToday(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("slots today takes no arguments")
	}
	list, err := a.rt.Slots.Today(ctx)
	if err != nil {
		return err
	}
	return a.showSlots(list)
}

func slotsUpcoming(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return usagef("slots upcoming takes no arguments")
	}
	list, err := a.rt.Slots.Upcoming(ctx)
	if err != nil {
		return err
	}
	return a.showSlots(list)
}

func slotsGet(ctx context.Context, a *app, args []string) error {
	id, err := oneID(a.flags("slots get"), args, "slot")
	if err != nil {
		return err
	}
	slot, err := a.rt.Slots.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, slot)
	}
	printSlot(a.out, slot)
	return nil
}

func slotsCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("slots create")
	title := fs.String("title", "", "slot title")
	var desc optString
	var start, end optTime
	fs.Var(&desc, "description", "optional description")
	fs.Var(&start, "start", "start time")
	fs.Var(&end, "end", "end time")
	maxP := fs.Int("max", 1, "maximum participants")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *title == "" || start.v == nil || end.v == nil {
		return usagef("-title, -start and -end are required")
	}

	slot, err := a.rt.Slots.Create(ctx, model.SlotCreate{
		Title:           *title,
		Description:     desc.v,
		StartTime:       *start.v,
		EndTime:         *end.v,
		MaxParticipants: *maxP,
	})
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, slot)
	}
	fmt.Fprintf(a.out, "Created slot %s\n", slot.ID)
	return nil
}

func slotsUpdate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("slots update")
	var (
		title, desc optString
		start, end  optTime
		maxP        optInt
		available   optBool
	)
	fs.Var(&title, "title", "new title")
	fs.Var(&desc, "description", "new description")
	fs.Var(&start, "start", "new start time")
	fs.Var(&end, "end", "new end time")
	fs.Var(&maxP, "max", "new maximum participants")
	fs.Var(&available, "available", "open or close the slot")
	id, err := oneID(fs, args, "slot")
	if err != nil {
		return err
	}
	update := model.SlotUpdate{
		Title:           title.v,
		Description:     desc.v,
		StartTime:       start.v,
		EndTime:         end.v,
		MaxParticipants: maxP.v,
		IsAvailable:     available.v,
	}
	if update == (model.SlotUpdate{}) {
		return usagef("nothing to update")
	}

	slot, err := a.rt.Slots.Update(ctx, id, update)
	if err != nil {
		return err
	}
	if a.json {
		return printJSON(a.out, slot)
	}
	fmt.Fprintf(a.out, "Updated slot %s\n", slot.ID)
	return nil
}

func slotsDelete(ctx context.Context, a *app, args []string) error {
	id, err := oneID(a.flags("slots delete"), args, "slot")
	if err != nil {
		return err
	}
	if err := a.rt.Slots.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted slot %s\n", id)
	return nil
}
