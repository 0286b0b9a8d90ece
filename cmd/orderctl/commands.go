package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bulk-order-service/apperrors"
	"bulk-order-service/client"
	"bulk-order-service/models"
)

type globalOptions struct {
	server   string
	email    string
	password string
	timeout  time.Duration
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "orderctl",
		Short:         "Command line client for the bulk order service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("ORDERCTL_SERVER", "http://localhost:8080"), "service base URL")
	root.PersistentFlags().StringVar(&opts.email, "email", os.Getenv("ORDERCTL_EMAIL"), "account email")
	root.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("ORDERCTL_PASSWORD"), "account password")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	root.AddCommand(
		loginCmd(opts),
		productsCmd(opts),
		ordersCmd(opts, false),
		ordersCmd(opts, true),
		placeCmd(opts),
		statusCmd(opts),
		cancelCmd(opts),
	)
	return root
}

func (o *globalOptions) api() *client.Client {
	return client.New(o.server, nil)
}

func (o *globalOptions) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

// signIn logs in with the configured account and returns its credentials.
func (o *globalOptions) signIn(ctx context.Context, api *client.Client) (client.Credentials, error) {
	if o.email == "" || o.password == "" {
		return client.Credentials{}, apperrors.Unauthorized("--email and --password (or ORDERCTL_EMAIL/ORDERCTL_PASSWORD) are required")
	}
	resp, err := api.Login(ctx, o.email, o.password)
	if err != nil {
		return client.Credentials{}, err
	}
	session := client.NewSession()
	session.Establish(resp.User, resp.Token)
	return session.Credentials(), nil
}

func loginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and print the caller's identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.requestContext()
			defer cancel()
			creds, err := opts.signIn(ctx, opts.api())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s <%s> (%s)\n", creds.Identity.Name, creds.Identity.Email, creds.Identity.Role)
			return nil
		},
	}
}

func productsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.requestContext()
			defer cancel()
			products, err := opts.api().ListProducts(ctx)
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
}

func ordersCmd(opts *globalOptions, all bool) *cobra.Command {
	use, short := "orders", "List your orders"
	if all {
		use, short = "all-orders", "List every order (admin)"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.requestContext()
			defer cancel()
			api := opts.api()
			creds, err := opts.signIn(ctx, api)
			if err != nil {
				return err
			}
			var orders []models.OrderResponse
			if all {
				orders, err = api.ListAllOrders(ctx, creds)
			} else {
				orders, err = api.ListMyOrders(ctx, creds)
			}
			if err != nil {
				return err
			}
			printOrders(cmd.OutOrStdout(), orders)
			return nil
		},
	}
}

func placeCmd(opts *globalOptions) *cobra.Command {
	var (
		address string
		items   []string
	)
	cmd := &cobra.Command{
		Use:     "place",
		Short:   "Place an order",
		Example: `  orderctl place --address "12 Market Rd" --item 7=2 --item 9=10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lines, err := parseItems(items)
			if err != nil {
				return err
			}

			ctx, cancel := opts.requestContext()
			defer cancel()
			api := opts.api()
			creds, err := opts.signIn(ctx, api)
			if err != nil {
				return err
			}
			products, err := api.ListProducts(ctx)
			if err != nil {
				return err
			}

			cart := client.NewCart(products)
			for _, l := range lines {
				if got := cart.SetQuantity(l.ProductID, l.Quantity); got != l.Quantity {
					fmt.Fprintf(cmd.ErrOrStderr(), "product %d: quantity %d limited to %d by available stock\n", l.ProductID, l.Quantity, got)
				}
			}

			resp, err := client.NewOrderPlacer(api).Submit(ctx, creds, &client.Checkout{Address: address, Cart: cart})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d placed, total %s\n", resp.OrderID, resp.Total.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "delivery address")
	cmd.Flags().StringArrayVar(&items, "item", nil, "product_id=quantity, repeatable")
	return cmd
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status ORDER_ID STATUS",
		Short: "Move an order to a new status (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			status, err := models.ParseOrderStatus(args[1])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, func(ctx context.Context, actions *client.OrderActions, creds client.Credentials) (*models.OrderResponse, error) {
				return actions.SetStatus(ctx, creds, id, status)
			})
		},
	}
}

func cancelCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, func(ctx context.Context, actions *client.OrderActions, creds client.Credentials) (*models.OrderResponse, error) {
				return actions.Cancel(ctx, creds, id)
			})
		},
	}
}

func runAction(cmd *cobra.Command, opts *globalOptions, fn func(context.Context, *client.OrderActions, client.Credentials) (*models.OrderResponse, error)) error {
	ctx, cancel := opts.requestContext()
	defer cancel()
	api := opts.api()
	creds, err := opts.signIn(ctx, api)
	if err != nil {
		return err
	}
	order, err := fn(ctx, client.NewOrderActions(api), creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "order %d is now %s\n", order.ID, order.Status)
	return nil
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(fmt.Sprintf("invalid order id %q", s))
	}
	return id, nil
}

// parseItems reads "id=qty" pairs.
func parseItems(items []string) ([]models.OrderLine, error) {
	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		idPart, qtyPart, ok := strings.Cut(item, "=")
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("item %q must look like product_id=quantity", item))
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil || id <= 0 {
			return nil, apperrors.Validation(fmt.Sprintf("invalid product id in %q", item))
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("invalid quantity in %q", item))
		}
		lines = append(lines, models.OrderLine{ProductID: id, Quantity: qty})
	}
	return lines, nil
}

func printProducts(w io.Writer, products []models.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", p.ID, p.Name, p.UnitPrice.StringFixed(2), p.StockQuantity)
	}
	tw.Flush()
}

func printOrders(w io.Writer, orders []models.OrderResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBUYER\tSTATUS\tPLACED\tITEMS\tTOTAL")
	for _, o := range orders {
		buyer := o.BuyerName
		if buyer == "" {
			buyer = strconv.FormatInt(o.BuyerID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			o.ID, buyer, o.Status, o.PlacedAt.Format(time.RFC3339), len(o.Items), o.Total.StringFixed(2))
	}
	tw.Flush()
}
