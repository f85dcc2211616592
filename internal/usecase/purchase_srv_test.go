package usecase

import (
	"context"
	"sync"
	"testing"

	"bookvault/internal/dto/request"
	"bookvault/internal/dto/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPurchaseFixture(t *testing.T) (PurchaseService, UserService, *fakeUserRepo, *fakeBookRepo, *fakePurchaseRepo, *fakeEntitlementCache) {
	t.Helper()
	repo, users, books, purchases, _ := newTestRepository()
	entitlements := newFakeEntitlementCache()
	svc := NewPurchaseService(repo, entitlements, fakeObjectStore{}, testConfig(), zap.NewNop())
	userSvc := NewUserService(repo, entitlements, zap.NewNop())
	return svc, userSvc, users, books, purchases, entitlements
}

func TestPurchaseRecordsPriceAtTimeOfSale(t *testing.T) {
	svc, _, users, books, _, entitlements := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "The Windup Girl", 9.99)

	purchase, err := svc.Purchase(context.Background(), user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	assert.Equal(t, 9.99, purchase.PurchasePrice)
	assert.Equal(t, "completed", string(purchase.Status))
	assert.NotNil(t, purchase.TransactionID)
	assert.Equal(t, 5, purchase.MaxDownloads)
	assert.True(t, entitlements.owns(user.ID, book.ID))

	// Catalog price changes do not touch recorded purchases
	book.Price = 14.99
	books.add(book)

	again, err := svc.Purchase(context.Background(), user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.Nil(t, again)
}

func TestPurchaseUnknownBook(t *testing.T) {
	svc, _, users, _, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")

	_, err := svc.Purchase(context.Background(), user.ID, &request.PurchaseRequest{
		BookID:        uuid.New().String(),
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestPurchaseInactiveBook(t *testing.T) {
	svc, _, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Withdrawn Title", 4.99)
	book.IsActive = false
	books.add(book)

	_, err := svc.Purchase(context.Background(), user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrBookUnavailable)
}

func TestConcurrentPurchasesCommitExactlyOne(t *testing.T) {
	svc, _, users, books, purchases, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Popular Book", 12.50)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Purchase(context.Background(), user.ID, &request.PurchaseRequest{
				BookID:        book.ID.String(),
				PaymentMethod: "card",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyOwned)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, purchases.completedCount(user.ID, book.ID))
}

func TestAuthorizeDownloadDenyReasons(t *testing.T) {
	svc, userSvc, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Gated Book", 7.99)
	ctx := context.Background()

	// Nothing purchased yet
	auth, err := svc.AuthorizeDownload(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, auth.Permitted)
	assert.Equal(t, response.DenyReasonNotPurchased, auth.Reason)

	_, err = svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	// Purchased but no device registered
	auth, err = svc.AuthorizeDownload(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, auth.Permitted)
	assert.Equal(t, response.DenyReasonNoDevice, auth.Reason)

	_, err = userSvc.RegisterDevice(ctx, user.ID, &request.RegisterDeviceRequest{
		DeviceID:   "ios-123",
		DeviceName: "iPhone",
	})
	require.NoError(t, err)

	auth, err = svc.AuthorizeDownload(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, auth.Permitted)
	assert.Equal(t, response.DenyReasonNone, auth.Reason)
}

func TestDownloadConsumesSlotAndStopsAtLimit(t *testing.T) {
	svc, userSvc, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Limited Book", 7.99)
	ctx := context.Background()

	_, err := svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	_, err = userSvc.RegisterDevice(ctx, user.ID, &request.RegisterDeviceRequest{
		DeviceID:   "ios-123",
		DeviceName: "iPhone",
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		dl, err := svc.Download(ctx, user.ID, book.ID)
		require.NoError(t, err, "download %d", i+1)
		assert.Contains(t, dl.DownloadURL, *book.FileKey)
		assert.Equal(t, 3600, dl.ExpiresIn)
		assert.Equal(t, 4-i, dl.DownloadsRemaining)
	}

	_, err = svc.Download(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, ErrDownloadLimitReached)

	auth, err := svc.AuthorizeDownload(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, auth.Permitted)
	assert.Equal(t, response.DenyReasonLimitExceeded, auth.Reason)
}

func TestDownloadWithoutPurchase(t *testing.T) {
	svc, _, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Unowned Book", 7.99)

	_, err := svc.Download(context.Background(), user.ID, book.ID)
	assert.ErrorIs(t, err, ErrNotPurchased)
}

func TestDownloadWithoutDevice(t *testing.T) {
	svc, _, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Deviceless Book", 7.99)
	ctx := context.Background()

	_, err := svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	_, err = svc.Download(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, ErrNoDeviceRegistered)
}

func TestRefundRevokesEntitlementKeepsAuditRow(t *testing.T) {
	svc, _, users, books, purchases, entitlements := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	book := seedBook(books, "Refunded Book", 19.99)
	ctx := context.Background()

	purchase, err := svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	purchaseID := uuid.MustParse(purchase.ID)

	refunded, err := svc.Refund(ctx, user.ID, purchaseID)
	require.NoError(t, err)
	assert.Equal(t, "refunded", string(refunded.Status))
	assert.False(t, entitlements.owns(user.ID, book.ID))

	// The row survives with its original price
	row, err := purchases.FindByID(ctx, purchaseID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 19.99, row.PurchasePrice)

	// No longer downloadable, and the book can be bought again
	auth, err := svc.AuthorizeDownload(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, response.DenyReasonNotPurchased, auth.Reason)

	_, err = svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	assert.NoError(t, err)
}

func TestRefundGuards(t *testing.T) {
	svc, _, users, books, _, _ := newPurchaseFixture(t)
	user := seedUser(users, "reader@example.com", "secret123")
	other := seedUser(users, "other@example.com", "secret123")
	book := seedBook(books, "Guarded Book", 5.99)
	ctx := context.Background()

	purchase, err := svc.Purchase(ctx, user.ID, &request.PurchaseRequest{
		BookID:        book.ID.String(),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	purchaseID := uuid.MustParse(purchase.ID)

	_, err = svc.Refund(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	_, err = svc.Refund(ctx, other.ID, purchaseID)
	assert.ErrorIs(t, err, ErrNotPurchaseOwner)

	_, err = svc.Refund(ctx, user.ID, purchaseID)
	require.NoError(t, err)

	// Second refund hits the already-refunded row
	_, err = svc.Refund(ctx, user.ID, purchaseID)
	assert.ErrorIs(t, err, ErrNotRefundable)
}
