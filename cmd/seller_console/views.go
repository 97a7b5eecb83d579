package main

import (
	"context"
	"fmt"

	"storefront/internal/core"
	"storefront/internal/live"
)

// view is one mounted console screen: a live subscription plus a debounced
// refetch of the screen's data. Exactly one view is open at a time; opening
// a new one closes the previous subscription first.
type view struct {
	name      string
	session   *live.Session
	debouncer *live.Debouncer
}

func (v *view) Connected() bool {
	return v.session.Connected()
}

func (v *view) close() {
	v.debouncer.Stop()
	v.session.Close()
}

// closeView tears down the current view, if any.
func (c *Console) closeView() {
	if c.view != nil {
		c.view.close()
		c.view = nil
	}
}

// mountView replaces the current view with a fresh subscription. refetch is
// invoked once immediately and then on every debounced event burst; onEvent
// (optional) sees each qualifying event before the refetch is scheduled.
func (c *Console) mountView(name, shopID string, events []string, refetch func(), onEvent func(core.DashboardEvent)) {
	c.closeView()

	debouncer := live.NewDebouncer(live.DefaultDebounce, refetch)
	handler := func(ev core.DashboardEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
		debouncer.Trigger()
	}
	session := live.NewSession(c.cfg.Live.URL, shopID, c.live, events, handler, c.logger)

	c.view = &view{name: name, session: session, debouncer: debouncer}
	refetch()
}

func (c *Console) openProductsView(ctx context.Context) error {
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	c.mountView("products", shopID, live.ProductEvents, func() {
		products, err := c.api.ShopProducts(ctx, shopID)
		if err != nil {
			fmt.Fprintf(c.out, "products refresh failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "-- products (%d) --\n", len(products))
		for _, p := range products {
			fmt.Fprintf(c.out, "  %-12s %-24s %8s  stock=%d\n", p.ID, p.Name, p.Price, p.Stock)
		}
	}, nil)
	return nil
}

func (c *Console) openOrdersView(ctx context.Context) error {
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	c.mountView("orders", shopID, live.OrderEvents, func() {
		list, err := c.api.SellerOrders(ctx, shopID)
		if err != nil {
			fmt.Fprintf(c.out, "orders refresh failed: %v\n", err)
			return
		}
		c.mirror.Replace(list)
		fmt.Fprintf(c.out, "-- orders (%d) --\n", c.mirror.Len())
		for _, o := range c.mirror.List() {
			fmt.Fprintf(c.out, "  %-12s %-14s %10s  items=%d\n", o.ID, o.Status, o.Total, len(o.Items))
		}
	}, c.mirror.ApplyEvent)
	return nil
}

func (c *Console) openIncomeView(ctx context.Context) error {
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	c.mountView("income", shopID, live.IncomeEvents, func() {
		income, err := c.api.SellerIncome(ctx, shopID)
		if err != nil {
			fmt.Fprintf(c.out, "income refresh failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "-- income --\n  completed: %s\n  pending:   %s\n  orders:    %d\n",
			income.TotalIncome, income.PendingTotal, income.OrderCount)
	}, nil)
	return nil
}
