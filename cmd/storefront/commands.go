package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/caprieux-storefront/internal/api"
	"github.com/example/caprieux-storefront/internal/api/middleware"
	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/command"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/order"
	"github.com/example/caprieux-storefront/internal/domain/product"
	"github.com/example/caprieux-storefront/internal/format"
	"github.com/example/caprieux-storefront/internal/query"
	"github.com/example/caprieux-storefront/internal/telemetry"
)

var errUsage = errors.New("usage")

type subcommand struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
	// message maps a failure to the text shown to the user.
	message func(err error) string
}

var commands map[string]subcommand

func init() {
	commands = map[string]subcommand{
		"products":       {"[-q term] [-limit n]", "list or search the catalog", runProducts, command.Message},
		"product":        {"<id>", "show one product", runProduct, command.Message},
		"add":            {"[-days n] <id>", "add a product to the cart", runAdd, command.Message},
		"remove":         {"<id>", "remove a line from the cart", cartOp("remove", removeItem), command.Message},
		"inc":            {"<id>", "increase a line's quantity", cartOp("inc", incrementItem), command.Message},
		"dec":            {"<id>", "decrease a line's quantity (minimum 1)", cartOp("dec", decrementItem), command.Message},
		"cart":           {"", "show the cart and totals", runCart, command.Message},
		"clear":          {"", "empty the cart", runClear, command.Message},
		"checkout":       {"-name n -phone p -address a [-open]", "create a payment link for the cart", runCheckout, command.Message},
		"serve":          {"", "run the payment return server", runServe, command.Message},
		"login":          {"-u username -p password", "sign in", runLogin, command.LoginMessage},
		"register":       {"-u username -e email -p password -confirm password", "create an account", runRegister, command.RegisterMessage},
		"logout":         {"", "sign out and empty the cart", runLogout, command.Message},
		"whoami":         {"", "show the signed-in user", runWhoami, command.Message},
		"chat":           {"", "talk to the shop assistant", runChat, command.Message},
		"orders":         {"", "list all orders (admin)", runOrders, orderMessage},
		"export-orders":  {"[-o file]", "export all orders as CSV (admin)", runExportOrders, orderMessage},
		"create-product": {"-title t -price p [-brand b] [-image url] [-desc d] [-sizes s]", "create a product (admin)", runCreateProduct, command.Message},
		"update-product": {"-title t -price p [-sizes s] <id>", "update a product (admin)", runUpdateProduct, command.Message},
		"delete-product": {"<id>", "delete a product (admin)", runDeleteProduct, command.Message},
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: storefront <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(tw, "  %s %s\t%s\n", name, c.usage, c.summary)
	}
	tw.Flush()
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parse parses flags and requires exactly want positional arguments.
func parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() != want {
		fmt.Fprintf(fs.Output(), "%s: expected %d argument(s)\n", fs.Name(), want)
		return nil, errUsage
	}
	return fs.Args(), nil
}

func orderMessage(err error) string {
	if errors.Is(err, order.ErrNoOrders) {
		return query.NoOrdersMessage
	}
	return command.Message(err)
}

// ============================================
// Catalog
// ============================================

func runProducts(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "products")
	term := fs.String("q", "", "search term")
	limit := fs.Int("limit", 0, "maximum number of products")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	products, err := a.queries.ListProducts(ctx, client.ListParams{SearchTerm: *term, Limit: *limit})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(a.out, "Không tìm thấy sản phẩm nào")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSẢN PHẨM\tTHƯƠNG HIỆU\tGIÁ THUÊ")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Brand, format.VND(p.Price))
	}
	return tw.Flush()
}

func runProduct(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "product")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	p, err := a.queries.GetProduct(ctx, rest[0])
	if err != nil {
		return err
	}
	printProduct(a.out, p)
	return nil
}

func printProduct(w io.Writer, p product.Product) {
	fmt.Fprintf(w, "%s\n", p.Title)
	if p.Brand != "" {
		fmt.Fprintf(w, "Thương hiệu: %s\n", p.Brand)
	}
	fmt.Fprintf(w, "Giá thuê: %s\n", format.VND(p.Price))
	fmt.Fprintf(w, "Hình ảnh: %s\n", p.Image())
	if p.ShortDescription != "" {
		fmt.Fprintf(w, "\n%s\n", p.ShortDescription)
	}
	d := p.ParsedDetails()
	for _, row := range [][2]string{
		{"Thông tin", d.BasicInfo},
		{"Kích cỡ", d.Sizes},
		{"Số đo", d.Measurements},
		{"Chất liệu", d.Material},
		{"Bảo quản", d.CareInstructions},
	} {
		if row[1] != "" {
			fmt.Fprintf(w, "%s: %s\n", row[0], row[1])
		}
	}
}

// ============================================
// Cart
// ============================================

func runAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "add")
	days := fs.Int("days", 0, "rental days (default 3)")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	if err := a.commands.AddToCart(ctx, command.AddToCart{ProductID: rest[0], RentalDays: *days}); err != nil {
		return err
	}
	if item, ok := a.cart.Item(rest[0]); ok {
		fmt.Fprintf(a.out, "Đã thêm %s vào giỏ hàng (số lượng: %d)\n", item.Title, item.Quantity)
	}
	return nil
}

type cartFunc func(ctx context.Context, h *command.Handler, id string) error

func removeItem(ctx context.Context, h *command.Handler, id string) error {
	return h.RemoveFromCart(ctx, command.RemoveFromCart{ProductID: id})
}

func incrementItem(ctx context.Context, h *command.Handler, id string) error {
	return h.IncrementQuantity(ctx, command.IncrementQuantity{ProductID: id})
}

func decrementItem(ctx context.Context, h *command.Handler, id string) error {
	return h.DecrementQuantity(ctx, command.DecrementQuantity{ProductID: id})
}

// cartOp runs fn on one product id and prints the cart afterwards.
func cartOp(name string, fn cartFunc) func(ctx context.Context, a *app, args []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlagSet(a, name)
		rest, err := parse(fs, args, 1)
		if err != nil {
			return err
		}
		if err := fn(ctx, a.commands, rest[0]); err != nil {
			return err
		}
		printCart(a.out, a.queries.GetCart())
		return nil
	}
}

func runCart(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "cart"), args, 0); err != nil {
		return err
	}
	printCart(a.out, a.queries.GetCart())
	return nil
}

func runClear(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "clear"), args, 0); err != nil {
		return err
	}
	if err := a.commands.ClearCart(ctx, command.ClearCart{}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Đã xóa giỏ hàng")
	return nil
}

func printCart(w io.Writer, c query.CartReadModel) {
	if c.IsEmpty() {
		fmt.Fprintln(w, "Giỏ hàng trống")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSẢN PHẨM\tSL\tTHUÊ\tĐƠN GIÁ\tTHÀNH TIỀN")
	for _, li := range c.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			li.ProductID, li.Title, li.Quantity, format.Days(li.RentalDays), format.VND(li.Price), format.VND(li.LineTotal))
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTạm tính (%d sản phẩm): %s\n", c.ItemCount, format.VND(c.Quote.Subtotal))
	if c.FreeShipping {
		fmt.Fprintln(w, "Phí vận chuyển: Miễn phí")
	} else {
		fmt.Fprintf(w, "Phí vận chuyển: %s\n", format.VND(c.Quote.Shipping))
		fmt.Fprintf(w, "Mua thêm %s để được miễn phí vận chuyển\n", format.VND(c.RemainingForFreeShipping))
	}
	fmt.Fprintf(w, "Tổng cộng: %s\n", format.VND(c.Quote.Total))
}

// ============================================
// Checkout
// ============================================

func runCheckout(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "checkout")
	name := fs.String("name", "", "recipient full name")
	phone := fs.String("phone", "", "recipient phone number")
	address := fs.String("address", "", "delivery address")
	open := fs.Bool("open", false, "open the payment page in the browser")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	a.navigator.open = *open

	_, err := a.commands.Checkout(ctx, command.Checkout{Recipient: checkout.Recipient{
		FullName:    *name,
		PhoneNumber: *phone,
		Address:     *address,
	}})
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		printFieldErrors(a.out, verr.Fields)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sau khi thanh toán, chạy \"storefront serve\" để nhận kết quả.")
	return nil
}

func printFieldErrors(w io.Writer, fields checkout.FieldErrors) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, fields[name].Message)
	}
}

func runServe(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "serve"), args, 0); err != nil {
		return err
	}
	httpMetrics := telemetry.NewHTTPMetrics(a.registry, a.registry, telemetry.DefaultNamespace)
	router := api.NewRouter(api.NewHandlers(a.commands, a.queries, a.logger), api.RouterConfig{
		Admin:   a.session,
		Metrics: httpMetrics,
		Logger:  a.logger,
		State:   []middleware.Reloader{a.cart, a.session},
	})
	fmt.Fprintf(a.out, "Đang chờ kết quả thanh toán tại http://%s (Ctrl+C để dừng)\n", a.cfg.ReturnAddr)
	return api.Serve(ctx, a.cfg.ReturnAddr, router, a.logger, nil)
}

// ============================================
// Auth
// ============================================

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	res, err := a.commands.Login(ctx, command.Login{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Xin chào, %s!\n", displayName(res.User.Username, res.User.Email))
	if res.Redirect == command.AdminPath {
		fmt.Fprintln(a.out, "Bạn đang đăng nhập với quyền quản trị.")
	}
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password")
	confirm := fs.String("confirm", "", "password confirmation")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	res, err := a.commands.Register(ctx, command.Register{
		Username:        *username,
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *confirm,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đăng ký thành công. Xin chào, %s!\n", displayName(res.User.Username, res.User.Email))
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "logout"), args, 0); err != nil {
		return err
	}
	if err := a.commands.SignOut(ctx, command.SignOut{}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Đã đăng xuất")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "whoami"), args, 0); err != nil {
		return err
	}
	u, ok := a.session.User()
	if !ok {
		fmt.Fprintln(a.out, "Chưa đăng nhập")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s) role=%s\n", displayName(u.Username, u.Email), u.Email, u.Role)
	return nil
}

func displayName(username, email string) string {
	if username != "" {
		return username
	}
	return email
}

// ============================================
// Chat
// ============================================

func runChat(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "chat"), args, 0); err != nil {
		return err
	}
	conv := a.commands.NewConversation()
	fmt.Fprintln(a.out, "Trợ lý Caprieux. Gõ câu hỏi, dòng trống hoặc Ctrl+D để thoát.")
	fmt.Fprintln(a.out, command.ChatGreeting)

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil
		}
		reply, err := conv.Send(ctx, line)
		if err != nil {
			a.logger.Sugar().Debugw("chat turn failed", "error", err)
		}
		fmt.Fprintln(a.out, reply)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// ============================================
// Admin
// ============================================

func runOrders(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlagSet(a, "orders"), args, 0); err != nil {
		return err
	}
	orders, err := a.queries.ListAllOrders(ctx)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "Chưa có đơn hàng nào")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MÃ ĐƠN\tKHÁCH HÀNG\tSẢN PHẨM\tSL\tTỔNG TIỀN\tTRẠNG THÁI\tNGÀY TẠO")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			o.OrderCode, o.FullName, o.ProductName(), o.Quantity, format.VND(o.Amount), o.Status, format.DateTime(o.CreatedAt))
	}
	return tw.Flush()
}

func runExportOrders(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "export-orders")
	output := fs.String("o", "", "output file (default don-hang-YYYY-MM-DD.csv)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	var buf strings.Builder
	name, err := a.queries.ExportOrders(ctx, &buf)
	if err != nil {
		return err
	}
	if *output != "" {
		name = *output
	}
	if err := os.WriteFile(name, []byte(buf.String()), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đã xuất đơn hàng ra %s\n", name)
	return nil
}

func runCreateProduct(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "create-product")
	cmd := command.CreateProduct{}
	fs.StringVar(&cmd.Title, "title", "", "product title")
	fs.Int64Var(&cmd.Price, "price", 0, "rental price in VND")
	fs.StringVar(&cmd.Brand, "brand", "", "brand")
	fs.StringVar(&cmd.ImageLink, "image", "", "image URL")
	fs.StringVar(&cmd.ShortDescription, "desc", "", "short description")
	fs.StringVar(&cmd.Sizes, "sizes", "", "available sizes")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	p, err := a.commands.CreateProduct(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đã tạo sản phẩm %s (%s)\n", p.Title, p.ID)
	return nil
}

func runUpdateProduct(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "update-product")
	cmd := command.UpdateProduct{}
	fs.StringVar(&cmd.Title, "title", "", "product title")
	fs.Int64Var(&cmd.Price, "price", 0, "rental price in VND")
	fs.StringVar(&cmd.Sizes, "sizes", "", "available sizes")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	cmd.ProductID = rest[0]
	if _, err := a.commands.UpdateProduct(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đã cập nhật sản phẩm %s\n", cmd.ProductID)
	return nil
}

func runDeleteProduct(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlagSet(a, "delete-product"), args, 1)
	if err != nil {
		return err
	}
	if err := a.commands.DeleteProduct(ctx, command.DeleteProduct{ProductID: rest[0]}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Đã xóa sản phẩm %s\n", rest[0])
	return nil
}
