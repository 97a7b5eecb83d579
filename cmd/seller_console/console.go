package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/core"
	"storefront/internal/orders"
	"storefront/internal/webhook"
	"storefront/pkg/cli"
	apperrors "storefront/pkg/errors"
)

// Console is the seller-side interactive shell. One view (products, orders
// or income) is open at a time; opening a view mounts its live subscription,
// switching away tears it down.
type Console struct {
	cfg      *config.Config
	logger   core.ILogger
	api      *api.Client
	session  *auth.Session
	mirror   *orders.Mirror
	notifier *webhook.Notifier
	live     bool
	out      io.Writer

	view *view
}

// Run reads commands until EOF, "quit", or context cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, "storefront seller console — type 'help' for commands")
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
	case "logout":
		c.session.Logout()
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "whoami":
		return c.cmdWhoami(ctx)
	case "products":
		return c.openProductsView(ctx)
	case "orders":
		return c.openOrdersView(ctx)
	case "income":
		return c.openIncomeView(ctx)
	case "dashboard":
		return c.cmdDashboard(ctx)
	case "close":
		c.closeView()
		return nil
	case "status":
		c.cmdStatus()
		return nil
	case "add-product":
		return c.cmdAddProduct(ctx, args[1:])
	case "set-stock":
		return c.cmdSetStock(ctx, args[1:])
	case "delete-product":
		return c.cmdDeleteProduct(ctx, args[1:])
	case "advance":
		return c.cmdAdvance(ctx, args[1:])
	case "restock":
		return c.cmdRestock(ctx, args[1:])
	case "at-risk":
		return c.cmdAtRisk(ctx)
	case "forecast":
		return c.cmdForecast(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  login <email> <password>         seller sign-in
  logout | whoami
  products | orders | income       open a live view
  close                            close the current view
  status                           connection + view status
  dashboard                        one-shot shop stats
  add-product <name> <price> <stock>
  set-stock <productID> <stock>
  delete-product <productID>
  advance <orderID> <status>       to-ship | to-receive | completed | cancelled | return-refund
  restock <budget> [profit|volume|balanced]
  at-risk                          flag low-stock and slow-moving products
  forecast <productID> [periods]   predict upcoming demand
  quit
`)
}

func (c *Console) requireSeller() (string, error) {
	user := c.session.Current()
	if user == nil {
		return "", errors.New("not logged in")
	}
	if !user.IsSeller() {
		return "", apperrors.ErrNotSeller
	}
	shopID := c.cfg.Shop.ID
	if shopID == "" {
		shopID = user.ShopID
	}
	if shopID == "" {
		return "", errors.New("no shop configured")
	}
	return shopID, nil
}

func (c *Console) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	user, err := c.session.LoginSeller(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "welcome, %s (shop %s)\n", user.Name, user.ShopID)
	return nil
}

func (c *Console) cmdWhoami(ctx context.Context) error {
	if !c.session.Authenticated() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	user, err := c.session.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s shop=%s\n", user.Name, user.Email, user.Role, user.ShopID)
	return nil
}

func (c *Console) cmdStatus() {
	if c.view == nil {
		fmt.Fprintln(c.out, "no view open")
		return
	}
	indicator := "offline"
	if c.view.Connected() {
		indicator = "Live"
	}
	fmt.Fprintf(c.out, "view=%s [%s]\n", c.view.name, indicator)
}

func (c *Console) cmdDashboard(ctx context.Context) error {
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	stats, err := c.api.SellerDashboard(ctx, shopID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "products=%d (low stock %d)  orders=%d (pending %d)  income=%s\n",
		stats.ProductCount, stats.LowStockCount, stats.OrderCount, stats.PendingOrders, stats.TotalIncome)
	return nil
}

func (c *Console) cmdAddProduct(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: add-product <name> <price> <stock>")
	}
	if _, err := c.requireSeller(); err != nil {
		return err
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("bad price: %w", err)
	}
	stock, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("bad stock: %w", err)
	}
	p, err := c.api.CreateProduct(ctx, api.ProductInput{Name: args[0], Price: price, Stock: stock})
	if err != nil {
		return err
	}
	c.notifier.ProductCreated(*p)
	fmt.Fprintf(c.out, "created %s (%s)\n", p.Name, p.ID)
	return nil
}

func (c *Console) cmdSetStock(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set-stock <productID> <stock>")
	}
	if _, err := c.requireSeller(); err != nil {
		return err
	}
	stock, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad stock: %w", err)
	}
	current, err := c.api.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := c.api.UpdateProduct(ctx, current.ID, api.ProductInput{
		Name:        current.Name,
		Description: current.Description,
		Category:    current.Category,
		Price:       current.Price,
		Stock:       stock,
		ImageURL:    current.ImageURL,
	})
	if err != nil {
		return err
	}
	c.notifier.InventoryUpdated(updated.ID, updated.ShopID, updated.Stock)
	fmt.Fprintf(c.out, "%s stock=%d\n", updated.Name, updated.Stock)
	return nil
}

func (c *Console) cmdDeleteProduct(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete-product <productID>")
	}
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	if err := c.api.DeleteProduct(ctx, args[0]); err != nil {
		return err
	}
	c.notifier.ProductDeleted(args[0], shopID)
	fmt.Fprintln(c.out, "deleted")
	return nil
}

func (c *Console) cmdAdvance(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: advance <orderID> <status>")
	}
	if _, err := c.requireSeller(); err != nil {
		return err
	}
	next := core.OrderStatus(args[1])
	if current, ok := c.mirror.Get(args[0]); ok && !current.Status.CanTransitionTo(next) {
		return fmt.Errorf("order %s cannot go from %s to %s", args[0], current.Status, next)
	}
	order, err := c.api.UpdateOrderStatus(ctx, args[0], next)
	if err != nil {
		return err
	}
	c.notifier.OrderStatusChanged(order.ID, order.ShopID, order.Status)
	fmt.Fprintf(c.out, "order %s is now %s\n", order.ID, order.Status)
	return nil
}

func (c *Console) cmdRestock(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: restock <budget> [profit|volume|balanced]")
	}
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	budget, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("bad budget: %w", err)
	}
	goal := core.GoalBalanced
	if len(args) > 1 {
		goal = args[1]
	}

	products, err := c.api.ShopProducts(ctx, shopID)
	if err != nil {
		return err
	}
	req := core.RestockRequest{ShopID: shopID, Budget: budget, Goal: goal}
	for _, p := range products {
		req.Products = append(req.Products, core.RestockProduct{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			// Cost basis is not tracked client-side; assume a 40% margin.
			Cost:          p.Price.Mul(decimal.NewFromFloat(0.6)),
			Stock:         p.Stock,
			Category:      p.Category,
			AvgDailySales: 1,
			ProfitMargin:  0.4,
		})
	}

	plan, err := c.api.RestockStrategy(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "strategy=%s total=%s\n", plan.Strategy, plan.TotalCost)
	for _, item := range plan.Items {
		fmt.Fprintf(c.out, "  %-24s x%-4d %s\n", item.Name, item.Quantity, item.TotalCost)
	}
	return nil
}

// salesHistory flattens the shop's orders into daily sales records, the
// shape the shelf analysis endpoints consume.
func (c *Console) salesHistory(ctx context.Context, shopID string) ([]core.SalesRecord, error) {
	list, err := c.api.SellerOrders(ctx, shopID)
	if err != nil {
		return nil, err
	}
	var sales []core.SalesRecord
	for _, order := range list {
		if order.Status == core.StatusCancelled {
			continue
		}
		for _, item := range order.Items {
			revenue, _ := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Float64()
			sales = append(sales, core.SalesRecord{
				ProductID: item.ProductID,
				Date:      order.CreatedAt.Format("2006-01-02"),
				Qty:       float64(item.Quantity),
				Revenue:   revenue,
			})
		}
	}
	return sales, nil
}

func (c *Console) cmdAtRisk(ctx context.Context) error {
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	products, err := c.api.ShopProducts(ctx, shopID)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(c.out, "no products")
		return nil
	}
	sales, err := c.salesHistory(ctx, shopID)
	if err != nil {
		return err
	}

	req := core.AtRiskRequest{ShopID: shopID, Sales: sales}
	for _, p := range products {
		req.Inventory = append(req.Inventory, core.ShelfItem{
			ProductID: p.ID,
			SKU:       p.ID,
			Name:      p.Name,
			Quantity:  p.Stock,
			Price:     p.Price,
		})
	}

	report, err := c.api.AtRiskInventory(ctx, req)
	if err != nil {
		return err
	}
	if len(report.AtRisk) == 0 {
		fmt.Fprintln(c.out, "shelf looks healthy")
		return nil
	}
	for _, item := range report.AtRisk {
		fmt.Fprintf(c.out, "  %-24s score=%.2f %v\n    -> %s: %s\n",
			item.Name, item.Score, item.Reasons,
			item.RecommendedAction.ActionType, item.RecommendedAction.Reasoning)
	}
	return nil
}

func (c *Console) cmdForecast(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: forecast <productID> [periods]")
	}
	shopID, err := c.requireSeller()
	if err != nil {
		return err
	}
	periods := 14
	if len(args) > 1 {
		if periods, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("bad periods: %w", err)
		}
	}
	sales, err := c.salesHistory(ctx, shopID)
	if err != nil {
		return err
	}

	report, err := c.api.ForecastDemand(ctx, core.ForecastRequest{
		ShopID:    shopID,
		ProductID: args[0],
		Sales:     sales,
		Periods:   periods,
		Model:     core.ForecastAuto,
	})
	if err != nil {
		return err
	}
	for _, forecast := range report.Forecasts {
		fmt.Fprintf(c.out, "%s (%s)\n", forecast.ProductID, forecast.Method)
		for _, point := range forecast.Predictions {
			fmt.Fprintf(c.out, "  %s  %.1f (%.1f - %.1f)\n",
				point.Date, point.PredictedQty, point.LowerCI, point.UpperCI)
		}
	}
	return nil
}
