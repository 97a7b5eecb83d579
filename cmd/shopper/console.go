package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/core"
	"storefront/internal/webhook"
	"storefront/pkg/cli"
)

// Console is the buyer-side interactive shell.
type Console struct {
	logger   core.ILogger
	api      *api.Client
	session  *auth.Session
	cart     *cart.Cart
	notifier *webhook.Notifier
	out      io.Writer
}

// Run reads commands until EOF, "quit", or context cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, "storefront shopper console — type 'help' for commands")
	scanner := bufio.NewScanner(in)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return scanner.Err()
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				return nil
			}
			if err := c.dispatch(ctx, strings.Fields(line)); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
		}
	}
}

func (c *Console) dispatch(ctx context.Context, args []string) error {
	for _, arg := range args[1:] {
		if err := cli.ValidateInput(arg); err != nil {
			return err
		}
	}

	switch args[0] {
	case "help":
		c.printHelp()
		return nil
	case "login":
		return c.cmdLogin(ctx, args[1:])
	case "register":
		return c.cmdRegister(ctx, args[1:])
	case "logout":
		c.session.Logout()
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "browse":
		return c.cmdBrowse(ctx)
	case "search":
		return c.cmdSearch(ctx, args[1:])
	case "show":
		return c.cmdShow(ctx, args[1:])
	case "add":
		return c.cmdAdd(ctx, args[1:])
	case "cart":
		c.printCart()
		return nil
	case "qty":
		return c.cmdQty(args[1:])
	case "select":
		return c.cmdSelect(args[1:], true)
	case "deselect":
		return c.cmdSelect(args[1:], false)
	case "select-shop":
		return c.cmdSelectShop(args[1:], true)
	case "deselect-shop":
		return c.cmdSelectShop(args[1:], false)
	case "select-all":
		c.cart.ToggleAll(true)
		c.printCart()
		return nil
	case "deselect-all":
		c.cart.ToggleAll(false)
		c.printCart()
		return nil
	case "rm":
		return c.cmdRemove(args[1:])
	case "checkout":
		return c.cmdCheckout(ctx)
	case "my-orders":
		return c.cmdMyOrders(ctx)
	case "cancel":
		return c.cmdCancel(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  login <email> <password>
  register <email> <password> <name>
  logout
  browse | search <query> | show <productID>
  add <productID> <qty>
  cart
  qty <itemID> <n>
  select <itemID> | deselect <itemID>
  select-shop <shopID> | deselect-shop <shopID>
  select-all | deselect-all
  rm <itemID>
  checkout                         one order per shop over the selection
  my-orders
  cancel <orderID>                 cancel an unpaid order
  quit
`)
}

func (c *Console) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	user, err := c.session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "welcome, %s\n", user.Name)
	return nil
}

func (c *Console) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: register <email> <password> <name>")
	}
	user, err := c.session.Register(ctx, api.RegisterRequest{
		Email: args[0], Password: args[1], Name: args[2], Role: core.RoleBuyer,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered and logged in as %s\n", user.Name)
	return nil
}

func (c *Console) cmdBrowse(ctx context.Context) error {
	products, err := c.api.ListProducts(ctx)
	if err != nil {
		return err
	}
	c.printProducts(products)
	return nil
}

func (c *Console) cmdSearch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: search <query>")
	}
	products, err := c.api.SearchProducts(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.printProducts(products)
	return nil
}

func (c *Console) printProducts(products []core.Product) {
	fmt.Fprintf(c.out, "-- %d products --\n", len(products))
	for _, p := range products {
		fmt.Fprintf(c.out, "  %-12s %-24s %8s  stock=%-4d shop=%s\n", p.ID, p.Name, p.Price, p.Stock, p.ShopID)
	}
}

func (c *Console) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: show <productID>")
	}
	p, err := c.api.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n  price=%s stock=%d shop=%s\n", p.Name, p.Price, p.Stock, p.ShopID)
	if p.Description != "" {
		fmt.Fprintf(c.out, "  %s\n", p.Description)
	}
	return nil
}

func (c *Console) cmdAdd(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: add <productID> <qty>")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad quantity: %w", err)
	}
	p, err := c.api.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	item, err := c.cart.Add(*p, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added %s x%d (item %s)\n", item.Name, item.Quantity, item.ID)
	return nil
}

func (c *Console) printCart() {
	items := c.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(c.out, "cart is empty")
		return
	}
	for shopID, group := range c.cart.GroupByShop() {
		fmt.Fprintf(c.out, "shop %s (subtotal %s)\n", shopID, c.cart.ShopSubtotal(shopID))
		for _, item := range group {
			fmt.Fprintf(c.out, "  [x] %-40s %-24s x%-3d %s\n", item.ID, item.Name, item.Quantity, item.Subtotal())
		}
	}
	for _, item := range items {
		if !item.Selected {
			fmt.Fprintf(c.out, "  [ ] %-40s %-24s x%-3d %s\n", item.ID, item.Name, item.Quantity, item.Subtotal())
		}
	}
	fmt.Fprintf(c.out, "selected: %d items, total %s\n", c.cart.TotalItems(), c.cart.TotalPrice())
}

func (c *Console) cmdQty(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: qty <itemID> <n>")
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad quantity: %w", err)
	}
	if err := c.cart.UpdateQuantity(args[0], qty); err != nil {
		return err
	}
	c.printCart()
	return nil
}

func (c *Console) cmdSelect(args []string, selected bool) error {
	if len(args) != 1 {
		return errors.New("usage: select|deselect <itemID>")
	}
	if err := c.cart.SetSelected(args[0], selected); err != nil {
		return err
	}
	c.printCart()
	return nil
}

func (c *Console) cmdSelectShop(args []string, selected bool) error {
	if len(args) != 1 {
		return errors.New("usage: select-shop|deselect-shop <shopID>")
	}
	c.cart.ToggleShop(args[0], selected)
	c.printCart()
	return nil
}

func (c *Console) cmdRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm <itemID>")
	}
	if err := c.cart.Remove(args[0]); err != nil {
		return err
	}
	c.printCart()
	return nil
}

// cmdCheckout places one order per shop over the selected items. Items are
// only removed from the cart after every order succeeded; a partial failure
// leaves the whole selection in place so the buyer can retry.
func (c *Console) cmdCheckout(ctx context.Context) error {
	if !c.session.Authenticated() {
		return errors.New("login before checkout")
	}
	groups := c.cart.GroupByShop()
	if len(groups) == 0 {
		return errors.New("nothing selected")
	}

	var placed []core.Order
	for shopID, items := range groups {
		req := api.CreateOrderRequest{ShopID: shopID}
		for _, item := range items {
			req.Items = append(req.Items, api.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		order, err := c.api.CreateOrder(ctx, req)
		if err != nil {
			return fmt.Errorf("order for shop %s failed: %w", shopID, err)
		}
		placed = append(placed, *order)
	}

	for _, order := range placed {
		c.notifier.OrderCreated(order)
		fmt.Fprintf(c.out, "order %s placed with shop %s, total %s\n", order.ID, order.ShopID, order.Total)
	}
	c.cart.RemoveSelected()
	return nil
}

func (c *Console) cmdMyOrders(ctx context.Context) error {
	if !c.session.Authenticated() {
		return errors.New("login first")
	}
	list, err := c.api.MyOrders(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "-- %d orders --\n", len(list))
	for _, o := range list {
		fmt.Fprintf(c.out, "  %-12s %-14s %10s  items=%d\n", o.ID, o.Status, o.Total, len(o.Items))
	}
	return nil
}

// cmdCancel moves an order to cancelled; the backend rejects it once the
// order left to-pay.
func (c *Console) cmdCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cancel <orderID>")
	}
	if !c.session.Authenticated() {
		return errors.New("login first")
	}
	order, err := c.api.UpdateOrderStatus(ctx, args[0], core.StatusCancelled)
	if err != nil {
		return err
	}
	c.notifier.OrderUpdated(*order)
	fmt.Fprintf(c.out, "order %s cancelled\n", order.ID)
	return nil
}
