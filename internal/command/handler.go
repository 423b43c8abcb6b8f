package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/product"
	"github.com/example/caprieux-storefront/internal/domain/session"
	"github.com/example/caprieux-storefront/internal/telemetry"
)

var (
	ErrForbidden           = session.ErrForbidden
	ErrInvalidCredentials  = errors.New("username and password are required")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch    = errors.New("password confirmation does not match")
)

const (
	HomePath  = "/"
	AdminPath = "/admin"
)

// Backend is the part of the REST client the commands use.
type Backend interface {
	GetProduct(ctx context.Context, id string) (product.Product, error)
	CreateProduct(ctx context.Context, p product.Product) (product.Product, error)
	UpdateProduct(ctx context.Context, id string, update product.Update) (product.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	Login(ctx context.Context, creds client.Credentials) (string, error)
	Register(ctx context.Context, reg client.Registration) (string, error)
	SendChatMessage(ctx context.Context, message string, history []client.ChatMessage) (string, error)
}

type Handler struct {
	backend    Backend
	cart       *cart.Store
	session    *session.Store
	initiator  *checkout.Initiator
	reconciler *checkout.Reconciler
	metrics    *telemetry.BusinessMetrics
	logger     *zap.Logger
	validate   *validator.Validate
}

type Option func(*Handler)

func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("command")
		}
	}
}

func NewHandler(
	backend Backend,
	cartStore *cart.Store,
	sessionStore *session.Store,
	initiator *checkout.Initiator,
	reconciler *checkout.Reconciler,
	opts ...Option,
) *Handler {
	h := &Handler{
		backend:    backend,
		cart:       cartStore,
		session:    sessionStore,
		initiator:  initiator,
		reconciler: reconciler,
		logger:     zap.NewNop(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ============================================
// Cart
// ============================================

// AddToCart fetches the product so the cart line carries a fresh snapshot.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	p, err := h.backend.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		h.metrics.RecordCartMutation("add", err)
		return err
	}
	days := cmd.RentalDays
	if days == 0 {
		days = cart.DefaultRentalDays
	}
	return h.cartMutation("add", h.cart.AddItemForDays(ctx, p, days))
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	return h.cartMutation("remove", h.cart.RemoveItem(ctx, cmd.ProductID))
}

func (h *Handler) IncrementQuantity(ctx context.Context, cmd IncrementQuantity) error {
	return h.cartMutation("increment", h.cart.IncrementQuantity(ctx, cmd.ProductID))
}

func (h *Handler) DecrementQuantity(ctx context.Context, cmd DecrementQuantity) error {
	return h.cartMutation("decrement", h.cart.DecrementQuantity(ctx, cmd.ProductID))
}

func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartMutation("clear", h.cart.Clear(ctx))
}

func (h *Handler) cartMutation(op string, err error) error {
	h.metrics.RecordCartMutation(op, err)
	h.metrics.SetCart(h.cart.Subtotal(), h.cart.ItemCount())
	return err
}

// ============================================
// Auth
// ============================================

// LoginResult is the signed-in user and where the storefront sends them.
type LoginResult struct {
	User     session.User `json:"user"`
	Redirect string       `json:"redirect"`
}

func loginResult(u session.User) LoginResult {
	redirect := HomePath
	if u.IsAdmin() {
		redirect = AdminPath
	}
	return LoginResult{User: u, Redirect: redirect}
}

func (h *Handler) Login(ctx context.Context, cmd Login) (LoginResult, error) {
	if err := h.validate.Struct(cmd); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := h.backend.Login(ctx, client.Credentials{Username: cmd.Username, Password: cmd.Password})
	if err != nil {
		h.metrics.RecordLogin(err)
		return LoginResult{}, err
	}
	user, err := h.session.Login(ctx, token)
	h.metrics.RecordLogin(err)
	if err != nil {
		return LoginResult{}, err
	}
	h.logger.Info("signed in", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return loginResult(user), nil
}

// Register creates the account and signs it in.
func (h *Handler) Register(ctx context.Context, cmd Register) (LoginResult, error) {
	if err := h.validateRegistration(cmd); err != nil {
		return LoginResult{}, err
	}

	token, err := h.backend.Register(ctx, client.Registration{
		Username: strings.TrimSpace(cmd.Username),
		Email:    strings.TrimSpace(cmd.Email),
		Password: cmd.Password,
	})
	if err != nil {
		return LoginResult{}, err
	}
	user, err := h.session.Login(ctx, token)
	if err != nil {
		return LoginResult{}, err
	}
	return loginResult(user), nil
}

func (h *Handler) validateRegistration(cmd Register) error {
	err := h.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}
	// Mismatch is reported before length, as the storefront form does.
	for _, fe := range verrs {
		if fe.Field() == "ConfirmPassword" {
			return ErrPasswordMismatch
		}
	}
	for _, fe := range verrs {
		if fe.Field() == "Password" && fe.Tag() == "min" {
			return ErrPasswordTooShort
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRegistration, verrs[0].Field())
}

// SignOut clears the session and the cart. Both are attempted even if one
// fails.
func (h *Handler) SignOut(ctx context.Context, cmd SignOut) error {
	sessionErr := h.session.Logout(ctx)
	if sessionErr != nil {
		sessionErr = fmt.Errorf("clear session: %w", sessionErr)
	}
	cartErr := h.cartMutation("clear", h.cart.Clear(ctx))
	if cartErr != nil {
		cartErr = fmt.Errorf("clear cart: %w", cartErr)
	}

	if err := errors.Join(sessionErr, cartErr); err != nil {
		h.logger.Warn("sign-out incomplete", zap.Error(err))
		return err
	}
	h.metrics.RecordLogout()
	return nil
}

// ============================================
// Checkout
// ============================================

func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*checkout.Attempt, error) {
	attempt, err := h.initiator.Submit(ctx, cmd.Recipient)
	h.metrics.RecordCheckout(checkoutResult(err))
	return attempt, err
}

func checkoutResult(err error) string {
	var verr *checkout.ValidationError
	switch {
	case err == nil, errors.Is(err, checkout.ErrNavigation):
		return "redirected"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, checkout.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, checkout.ErrSubmitInProgress):
		return "busy"
	case errors.Is(err, checkout.ErrNoPaymentLink):
		return "no_link"
	}
	return "backend_error"
}

// CompletePayment reconciles a redirect from the payment provider.
func (h *Handler) CompletePayment(ctx context.Context, cmd CompletePayment) (checkout.Result, error) {
	res, err := h.reconciler.Handle(ctx, cmd.Outcome, cmd.Query)
	if err != nil && res.State == "" {
		return res, err
	}
	h.metrics.RecordPaymentReturn(string(cmd.Outcome), res.WebhookSent)
	h.metrics.SetCart(h.cart.Subtotal(), h.cart.ItemCount())
	return res, err
}

// ============================================
// Admin Products
// ============================================

func (h *Handler) requireAdmin() error {
	return h.session.RequireAdmin()
}

func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (product.Product, error) {
	if err := h.requireAdmin(); err != nil {
		return product.Product{}, err
	}
	p := product.Product{
		Title:            strings.TrimSpace(cmd.Title),
		Brand:            cmd.Brand,
		Price:            cmd.Price,
		ImageLink:        cmd.ImageLink,
		ShortDescription: cmd.ShortDescription,
	}
	if cmd.Sizes != "" {
		details, err := detailsJSON(product.Details{Sizes: cmd.Sizes})
		if err != nil {
			return product.Product{}, err
		}
		p.Details = details
	}
	if err := p.Validate(); err != nil {
		return product.Product{}, err
	}
	return h.backend.CreateProduct(ctx, p)
}

// UpdateProduct sends {title, price, details: {sizes}} for the product.
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (product.Product, error) {
	if err := h.requireAdmin(); err != nil {
		return product.Product{}, err
	}
	update := product.Update{Title: strings.TrimSpace(cmd.Title), Price: cmd.Price}
	if cmd.Sizes != "" {
		update.Details = &product.Details{Sizes: cmd.Sizes}
	}
	if err := update.Validate(); err != nil {
		return product.Product{}, err
	}
	return h.backend.UpdateProduct(ctx, cmd.ProductID, update)
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	if err := h.requireAdmin(); err != nil {
		return err
	}
	return h.backend.DeleteProduct(ctx, cmd.ProductID)
}

func detailsJSON(d product.Details) (json.RawMessage, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode product details: %w", err)
	}
	return data, nil
}

// ============================================
// Chat
// ============================================

// ChatUnavailableMessage is shown in place of a reply when the assistant
// cannot be reached.
const ChatUnavailableMessage = "Xin lỗi, đã có lỗi khi kết nối tới dịch vụ trợ lý. Vui lòng thử lại sau."

// ChatGreeting opens every conversation as the assistant's first turn.
const ChatGreeting = "Xin chào! Tôi có thể giúp gì cho bạn hôm nay?"

// Conversation is one chat with the assistant. The history sent to the
// backend starts with the greeting and includes every prior turn, failed
// replies included.
type Conversation struct {
	mu      sync.Mutex
	backend Backend
	history []client.ChatMessage
}

func (h *Handler) NewConversation() *Conversation {
	return &Conversation{
		backend: h.backend,
		history: []client.ChatMessage{{Role: client.RoleAssistant, Content: ChatGreeting}},
	}
}

// Send posts message and returns the reply. On failure the returned reply is
// ChatUnavailableMessage and err carries the cause.
func (c *Conversation) Send(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	message = strings.TrimSpace(message)
	if message == "" {
		return "", nil
	}
	c.history = append(c.history, client.ChatMessage{Role: client.RoleUser, Content: message})
	history := make([]client.ChatMessage, len(c.history))
	copy(history, c.history)

	reply, err := c.backend.SendChatMessage(ctx, message, history)
	if err != nil {
		reply = ChatUnavailableMessage
	}
	c.history = append(c.history, client.ChatMessage{Role: client.RoleAssistant, Content: reply})
	return reply, err
}

// History returns a copy of the turns so far.
func (c *Conversation) History() []client.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]client.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}
