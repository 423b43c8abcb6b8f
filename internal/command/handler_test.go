package command

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/caprieux-storefront/internal/auth"
	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	checkoutmocks "github.com/example/caprieux-storefront/internal/domain/checkout/mocks"
	"github.com/example/caprieux-storefront/internal/domain/product"
	"github.com/example/caprieux-storefront/internal/domain/session"
	"github.com/example/caprieux-storefront/internal/infrastructure/storage"
	storagemocks "github.com/example/caprieux-storefront/internal/infrastructure/storage/mocks"
	"github.com/example/caprieux-storefront/internal/infrastructure/store/mocks"
	"github.com/example/caprieux-storefront/internal/telemetry"
)

// fakeBackend is an in-memory Backend.
type fakeBackend struct {
	mu       sync.Mutex
	products map[string]product.Product
	token    string
	loginErr error
	chat     func(message string, history []client.ChatMessage) (string, error)

	Created  []product.Product
	Updated  map[string]product.Update
	Deleted  []string
	Logins   []client.Credentials
	Registry []client.Registration
	Chats    [][]client.ChatMessage
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: map[string]product.Product{
			"p1": {ID: "p1", Title: "Đầm dạ hội", Brand: "Caprieux", Price: 350000},
			"p2": {ID: "p2", Title: "Vest nam", Brand: "Caprieux", Price: 200000},
		},
		Updated: map[string]product.Update{},
	}
}

func (f *fakeBackend) GetProduct(ctx context.Context, id string) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return product.Product{}, product.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeBackend) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "new-id"
	f.Created = append(f.Created, p)
	return p, nil
}

func (f *fakeBackend) UpdateProduct(ctx context.Context, id string, update product.Update) (product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updated[id] = update
	return product.Product{ID: id, Title: update.Title, Price: update.Price}, nil
}

func (f *fakeBackend) DeleteProduct(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, id)
	return nil
}

func (f *fakeBackend) Login(ctx context.Context, creds client.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Logins = append(f.Logins, creds)
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.token, nil
}

func (f *fakeBackend) Register(ctx context.Context, reg client.Registration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Registry = append(f.Registry, reg)
	return f.token, nil
}

func (f *fakeBackend) SendChatMessage(ctx context.Context, message string, history []client.ChatMessage) (string, error) {
	f.mu.Lock()
	f.Chats = append(f.Chats, history)
	chat := f.chat
	f.mu.Unlock()
	if chat == nil {
		return "Dạ, shop có thể giúp gì ạ?", nil
	}
	return chat(message, history)
}

func signedToken(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		ID:       "u-1",
		Username: "lan",
		Email:    "lan@example.com",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend"))
	require.NoError(t, err)
	return s
}

type testDeps struct {
	handler   *Handler
	backend   *fakeBackend
	kv        *storagemocks.MockKeyValueStore
	journal   *mocks.MockJournal
	cart      *cart.Store
	session   *session.Store
	gateway   *checkoutmocks.MockPaymentGateway
	navigator *checkoutmocks.MockNavigator
	webhook   *checkoutmocks.MockWebhookSender
	metrics   *telemetry.BusinessMetrics
}

func newTestHandler(t *testing.T) testDeps {
	t.Helper()
	ctx := context.Background()

	d := testDeps{
		backend:   newFakeBackend(),
		kv:        storagemocks.NewMockKeyValueStore(),
		journal:   mocks.NewMockJournal(),
		gateway:   checkoutmocks.NewMockPaymentGateway("https://pay.example/s/1"),
		navigator: checkoutmocks.NewMockNavigator(),
		webhook:   checkoutmocks.NewMockWebhookSender(),
		metrics:   telemetry.NewBusinessMetrics(prometheus.NewRegistry(), ""),
	}
	d.backend.token = signedToken(t, "customer")

	var err error
	d.cart, err = cart.Open(ctx, d.kv, cart.WithJournal(d.journal))
	require.NoError(t, err)
	d.session, err = session.Open(ctx, d.kv, session.WithJournal(d.journal))
	require.NoError(t, err)

	initiator := checkout.NewInitiator(d.gateway, d.navigator, d.cart)
	reconciler := checkout.NewReconciler(d.webhook, d.cart)
	d.handler = NewHandler(d.backend, d.cart, d.session, initiator, reconciler, WithMetrics(d.metrics))
	return d
}

func validRecipient() checkout.Recipient {
	return checkout.Recipient{FullName: "Lan", PhoneNumber: "0901234567", Address: "Quận 3"}
}

// ============================================
// Cart Command Tests
// ============================================

func TestHandler_AddToCart_Success(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))

	items := d.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Đầm dạ hội", items[0].Title)
	assert.Equal(t, cart.DefaultRentalDays, items[0].RentalDays)
	assert.Equal(t, 2.0, testutil.ToFloat64(d.metrics.CartMutations.WithLabelValues("add", "ok")))
	assert.Equal(t, 700000.0, testutil.ToFloat64(d.metrics.CartValue))
}

func TestHandler_AddToCart_RentalDays(t *testing.T) {
	d := newTestHandler(t)

	require.NoError(t, d.handler.AddToCart(context.Background(), AddToCart{ProductID: "p2", RentalDays: 5}))

	item, ok := d.cart.Item("p2")
	require.True(t, ok)
	assert.Equal(t, 5, item.RentalDays)
}

func TestHandler_AddToCart_ProductNotFound(t *testing.T) {
	d := newTestHandler(t)

	err := d.handler.AddToCart(context.Background(), AddToCart{ProductID: "missing"})

	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.True(t, d.cart.IsEmpty())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.CartMutations.WithLabelValues("add", "error")))
}

func TestHandler_QuantityAndRemove(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))

	require.NoError(t, d.handler.IncrementQuantity(ctx, IncrementQuantity{ProductID: "p1"}))
	require.NoError(t, d.handler.IncrementQuantity(ctx, IncrementQuantity{ProductID: "p1"}))
	require.NoError(t, d.handler.DecrementQuantity(ctx, DecrementQuantity{ProductID: "p1"}))
	assert.Equal(t, 2, d.cart.ItemCount())

	require.NoError(t, d.handler.RemoveFromCart(ctx, RemoveFromCart{ProductID: "p1"}))
	assert.True(t, d.cart.IsEmpty())

	assert.Equal(t, []string{
		cart.EventItemAdded,
		cart.EventQuantityChanged,
		cart.EventQuantityChanged,
		cart.EventQuantityChanged,
		cart.EventItemRemoved,
	}, d.journal.EventTypes())
}

func TestHandler_ClearCart_WriteFailure(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))
	d.kv.PutErr = errors.New("disk full")

	err := d.handler.ClearCart(ctx, ClearCart{})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, d.cart.ItemCount())
}

// ============================================
// Auth Command Tests
// ============================================

func TestHandler_Login_Customer(t *testing.T) {
	d := newTestHandler(t)

	res, err := d.handler.Login(context.Background(), Login{Username: "lan", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, HomePath, res.Redirect)
	assert.Equal(t, "lan", res.User.Username)
	assert.True(t, d.session.IsAuthenticated())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Logins.WithLabelValues("ok")))
}

func TestHandler_Login_AdminRedirect(t *testing.T) {
	d := newTestHandler(t)
	d.backend.token = signedToken(t, auth.RoleAdmin)

	res, err := d.handler.Login(context.Background(), Login{Username: "boss", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, AdminPath, res.Redirect)
}

func TestHandler_Login_MissingFields(t *testing.T) {
	d := newTestHandler(t)

	_, err := d.handler.Login(context.Background(), Login{Username: "lan"})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, d.backend.Logins)
}

func TestHandler_Login_BackendRejects(t *testing.T) {
	d := newTestHandler(t)
	d.backend.loginErr = &client.APIError{StatusCode: 401, Message: "Sai mật khẩu"}

	_, err := d.handler.Login(context.Background(), Login{Username: "lan", Password: "nope"})

	assert.Equal(t, 401, client.StatusCode(err))
	assert.False(t, d.session.IsAuthenticated())
	assert.Equal(t, "Đăng nhập không thành công. Vui lòng kiểm tra lại thông tin.", LoginMessage(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Logins.WithLabelValues("error")))
}

func TestHandler_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Register
		err     error
		message string
	}{
		{"mismatch reported first", Register{Username: "mai", Email: "mai@example.com", Password: "abc", ConfirmPassword: "abd"}, ErrPasswordMismatch, "Mật khẩu xác nhận không khớp"},
		{"too short", Register{Username: "mai", Email: "mai@example.com", Password: "abc", ConfirmPassword: "abc"}, ErrPasswordTooShort, "Mật khẩu phải có ít nhất 6 ký tự"},
		{"bad email", Register{Username: "mai", Email: "not-an-email", Password: "abcdef", ConfirmPassword: "abcdef"}, ErrInvalidRegistration, "Đăng ký không thành công. Vui lòng kiểm tra lại thông tin."},
		{"missing username", Register{Email: "mai@example.com", Password: "abcdef", ConfirmPassword: "abcdef"}, ErrInvalidRegistration, "Đăng ký không thành công. Vui lòng kiểm tra lại thông tin."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestHandler(t)

			_, err := d.handler.Register(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.message, RegisterMessage(err))
			assert.Empty(t, d.backend.Registry)
		})
	}
}

func TestHandler_Register_SignsIn(t *testing.T) {
	d := newTestHandler(t)

	res, err := d.handler.Register(context.Background(), Register{
		Username:        " mai ",
		Email:           "mai@example.com",
		Password:        "abcdef",
		ConfirmPassword: "abcdef",
	})

	require.NoError(t, err)
	assert.Equal(t, HomePath, res.Redirect)
	require.Len(t, d.backend.Registry, 1)
	assert.Equal(t, "mai", d.backend.Registry[0].Username)
	assert.True(t, d.session.IsAuthenticated())
}

func TestRegisterMessage_BackendMessage(t *testing.T) {
	err := &client.APIError{StatusCode: 409, Message: "Tên đăng nhập đã tồn tại"}
	assert.Equal(t, "Tên đăng nhập đã tồn tại", RegisterMessage(err))
}

// ============================================
// Sign-out Tests
// ============================================

func TestHandler_SignOut_ClearsCartAndSession(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	_, err := d.handler.Login(ctx, Login{Username: "lan", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p2"}))

	require.NoError(t, d.handler.SignOut(ctx, SignOut{}))

	assert.True(t, d.cart.IsEmpty())
	assert.False(t, d.session.IsAuthenticated())
	token, _ := d.session.Token(ctx)
	assert.Empty(t, token)
	_, ok := d.kv.Value(storage.TokenKey)
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Logouts))
}

func TestHandler_SignOut_AttemptsBothAndJoinsErrors(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	_, err := d.handler.Login(ctx, Login{Username: "lan", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))
	d.kv.DeleteErr = errors.New("token locked")

	err = d.handler.SignOut(ctx, SignOut{})

	require.Error(t, err)
	assert.ErrorContains(t, err, "clear session")
	assert.True(t, d.cart.IsEmpty(), "cart is cleared even when the session is not")
	assert.Zero(t, testutil.ToFloat64(d.metrics.Logouts))
}

// ============================================
// Checkout Tests
// ============================================

func TestHandler_Checkout_Success(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))

	attempt, err := d.handler.Checkout(ctx, Checkout{Recipient: validRecipient()})

	require.NoError(t, err)
	assert.Equal(t, checkout.StateAwaitingReturn, attempt.State)
	assert.Equal(t, []string{"https://pay.example/s/1"}, d.navigator.URLs)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.CheckoutStarted.WithLabelValues("redirected")))
}

func TestHandler_Checkout_FailedOrderKeepsCart(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p2"}))
	before := d.cart.Items()
	d.gateway.Err = &client.APIError{StatusCode: 500, Message: "Không tạo được đơn"}

	_, err := d.handler.Checkout(ctx, Checkout{Recipient: validRecipient()})

	assert.ErrorIs(t, err, checkout.ErrPaymentRequest)
	assert.Equal(t, before, d.cart.Items())
	assert.Len(t, d.cart.Items(), 2)
	assert.Equal(t, "Có lỗi xảy ra khi tạo đơn hàng: Không tạo được đơn", Message(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.CheckoutStarted.WithLabelValues("backend_error")))
}

func TestHandler_Checkout_Results(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(d testDeps)
		r      checkout.Recipient
		result string
	}{
		{"empty cart", func(d testDeps) {}, validRecipient(), "empty_cart"},
		{"invalid form", func(d testDeps) {
			require.NoError(t, d.handler.AddToCart(context.Background(), AddToCart{ProductID: "p1"}))
		}, checkout.Recipient{}, "invalid"},
		{"no link", func(d testDeps) {
			require.NoError(t, d.handler.AddToCart(context.Background(), AddToCart{ProductID: "p1"}))
			d.gateway.CheckoutURL = ""
		}, validRecipient(), "no_link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestHandler(t)
			tt.setup(d)

			_, err := d.handler.Checkout(context.Background(), Checkout{Recipient: tt.r})

			assert.Error(t, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.CheckoutStarted.WithLabelValues(tt.result)))
		})
	}
}

func TestHandler_CompletePayment(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	require.NoError(t, d.handler.AddToCart(ctx, AddToCart{ProductID: "p1"}))

	res, err := d.handler.CompletePayment(ctx, CompletePayment{
		Outcome: checkout.OutcomeSuccess,
		Query:   url.Values{"orderCode": {"42"}, "cancel": {"false"}},
	})

	require.NoError(t, err)
	assert.True(t, res.CartCleared)
	assert.True(t, d.cart.IsEmpty())
	assert.Equal(t, 1, d.webhook.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.PaymentReturns.WithLabelValues("success")))
	assert.Zero(t, testutil.ToFloat64(d.metrics.CartItems))
}

func TestHandler_CompletePayment_UnknownOutcome(t *testing.T) {
	d := newTestHandler(t)

	_, err := d.handler.CompletePayment(context.Background(), CompletePayment{Outcome: "maybe"})

	assert.ErrorIs(t, err, checkout.ErrUnknownOutcome)
	assert.Zero(t, d.webhook.Calls())
}

// ============================================
// Admin Product Tests
// ============================================

func loginAs(t *testing.T, d testDeps, role string) {
	t.Helper()
	d.backend.token = signedToken(t, role)
	_, err := d.handler.Login(context.Background(), Login{Username: "x", Password: "secret1"})
	require.NoError(t, err)
}

func TestHandler_AdminRequiresAdminSession(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	loginAs(t, d, "customer")

	_, err := d.handler.CreateProduct(ctx, CreateProduct{Title: "Vest", Price: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = d.handler.UpdateProduct(ctx, UpdateProduct{ProductID: "p1", Title: "x"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, d.handler.DeleteProduct(ctx, DeleteProduct{ProductID: "p1"}), ErrForbidden)

	assert.Empty(t, d.backend.Created)
	assert.Empty(t, d.backend.Updated)
	assert.Empty(t, d.backend.Deleted)
	assert.Equal(t, "Bạn không có quyền thực hiện thao tác này", Message(ErrForbidden))
}

func TestHandler_CreateProduct(t *testing.T) {
	d := newTestHandler(t)
	loginAs(t, d, auth.RoleAdmin)

	p, err := d.handler.CreateProduct(context.Background(), CreateProduct{Title: " Áo dài ", Price: 300000, Sizes: "S, M"})

	require.NoError(t, err)
	assert.Equal(t, "new-id", p.ID)
	require.Len(t, d.backend.Created, 1)
	assert.Equal(t, "Áo dài", d.backend.Created[0].Title)
	assert.JSONEq(t, `{"sizes":"S, M"}`, string(d.backend.Created[0].Details))
}

func TestHandler_CreateProduct_Invalid(t *testing.T) {
	d := newTestHandler(t)
	loginAs(t, d, auth.RoleAdmin)

	_, err := d.handler.CreateProduct(context.Background(), CreateProduct{Title: "Áo", Price: 0})

	assert.ErrorIs(t, err, product.ErrInvalidPrice)
	assert.Empty(t, d.backend.Created)
}

func TestHandler_UpdateAndDeleteProduct(t *testing.T) {
	d := newTestHandler(t)
	ctx := context.Background()
	loginAs(t, d, auth.RoleAdmin)

	_, err := d.handler.UpdateProduct(ctx, UpdateProduct{ProductID: "p1", Title: "Đầm mới", Price: 400000, Sizes: "L"})
	require.NoError(t, err)
	require.NoError(t, d.handler.DeleteProduct(ctx, DeleteProduct{ProductID: "p2"}))

	update := d.backend.Updated["p1"]
	assert.Equal(t, "Đầm mới", update.Title)
	require.NotNil(t, update.Details)
	assert.Equal(t, "L", update.Details.Sizes)
	assert.Equal(t, []string{"p2"}, d.backend.Deleted)
}

// ============================================
// Chat Tests
// ============================================

func TestConversation_SendKeepsHistory(t *testing.T) {
	d := newTestHandler(t)
	conv := d.handler.NewConversation()
	ctx := context.Background()

	reply, err := conv.Send(ctx, "Giá thuê bao nhiêu?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	_, err = conv.Send(ctx, "Có size M không?")
	require.NoError(t, err)

	require.Len(t, d.backend.Chats, 2)
	second := d.backend.Chats[1]
	require.Len(t, second, 4)
	assert.Equal(t, client.RoleAssistant, second[0].Role)
	assert.Equal(t, client.RoleUser, second[1].Role)
	assert.Equal(t, client.RoleAssistant, second[2].Role)
	assert.Equal(t, "Có size M không?", second[3].Content)
	assert.Len(t, conv.History(), 5)
}

func TestConversation_FirstTurnCarriesGreeting(t *testing.T) {
	d := newTestHandler(t)
	conv := d.handler.NewConversation()

	_, err := conv.Send(context.Background(), "Chào shop")
	require.NoError(t, err)

	require.Len(t, d.backend.Chats, 1)
	assert.Equal(t, []client.ChatMessage{
		{Role: client.RoleAssistant, Content: ChatGreeting},
		{Role: client.RoleUser, Content: "Chào shop"},
	}, d.backend.Chats[0])
}

func TestConversation_FailureUsesFallbackReply(t *testing.T) {
	d := newTestHandler(t)
	d.backend.chat = func(string, []client.ChatMessage) (string, error) {
		return "", errors.New("timeout")
	}
	conv := d.handler.NewConversation()

	reply, err := conv.Send(context.Background(), "alo")

	assert.Error(t, err)
	assert.Equal(t, ChatUnavailableMessage, reply)
	history := conv.History()
	assert.Equal(t, ChatUnavailableMessage, history[len(history)-1].Content)
}

func TestConversation_BlankMessageIgnored(t *testing.T) {
	d := newTestHandler(t)
	conv := d.handler.NewConversation()

	reply, err := conv.Send(context.Background(), "   ")

	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Empty(t, d.backend.Chats)
}
