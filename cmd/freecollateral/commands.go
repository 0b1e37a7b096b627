package main

import (
	"context"
	"errors"
	"strings"

	"github.com/alejandrodnm/freecollateral/internal/application/freecollateral"
	"github.com/alejandrodnm/freecollateral/internal/domain"
)

const historyLimit = 20

var errAddressRequired = errors.New("-address is required")

func (a *app) runForm(ctx context.Context, address string) error {
	if address == "" {
		return errAddressRequired
	}
	fields, err := a.host.Form(ctx, address)
	if err != nil {
		return err
	}
	a.console.PrintForm(a.host.Info(), address, fields)
	return nil
}

// runCheck evalúa la cuenta una vez con la misma regla que OnBlocks.
func (a *app) runCheck(ctx context.Context, address string, threshold float64) error {
	if address == "" {
		return errAddressRequired
	}
	snap, err := a.fetcher.FetchSnapshot(ctx, address)
	if err != nil {
		return err
	}
	var notes []domain.Notification
	if snap.FreeCollateral < threshold {
		notes = append(notes, a.plugin.BuildNotification(snap))
	}
	a.console.PrintSnapshot(address, snap, threshold, notes)
	return nil
}

func (a *app) runSubscribe(ctx context.Context, address, channel, target string, threshold float64, thresholdSet bool) error {
	if address == "" {
		return errAddressRequired
	}
	sub := domain.Subscriber{
		Address: address,
		Channel: domain.Channel(strings.ToLower(channel)),
		Target:  target,
	}
	if thresholdSet {
		sub.Values = domain.Subscription{freecollateral.FieldID: threshold}
	}

	saved, err := a.host.Subscribe(ctx, sub)
	if err != nil {
		return err
	}
	a.console.PrintSubscribers([]domain.Subscriber{saved})
	return nil
}

func (a *app) runUnsubscribe(ctx context.Context, id string) error {
	return a.host.Unsubscribe(ctx, id)
}

func (a *app) runList(ctx context.Context) error {
	subs, err := a.host.Subscribers(ctx)
	if err != nil {
		return err
	}
	a.console.PrintSubscribers(subs)
	return nil
}

func (a *app) runHistory(ctx context.Context, address string) error {
	if address == "" {
		return errAddressRequired
	}
	recs, err := a.host.History(ctx, address, historyLimit)
	if err != nil {
		return err
	}
	a.console.PrintHistory(address, recs)
	return nil
}

func (a *app) runWatch(ctx context.Context) error {
	return a.host.Run(ctx, a.blockSource())
}
