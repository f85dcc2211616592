package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"bookvault/internal/data/entity"
	"bookvault/internal/data/repository"
	"bookvault/pkg/utils"

	"github.com/google/uuid"
)

// In-memory fakes backing the service tests. The purchase fake enforces
// the same completed-purchase uniqueness the database index does, so the
// concurrency tests exercise real contention.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email && user.DeletedAt == nil {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeUserRepo) UpdateDevice(_ context.Context, id uuid.UUID, deviceID, deviceName *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.RegisteredDeviceID = deviceID
		user.RegisteredDeviceName = deviceName
	}
	return nil
}

func (f *fakeUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		user.IsActive = false
		now := time.Now()
		user.DeletedAt = &now
	}
	return nil
}

type fakeBookRepo struct {
	mu            sync.Mutex
	books         map[uuid.UUID]*entity.Book
	purchaseCount map[uuid.UUID]int64
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{
		books:         make(map[uuid.UUID]*entity.Book),
		purchaseCount: make(map[uuid.UUID]int64),
	}
}

func (f *fakeBookRepo) add(book *entity.Book) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *book
	f.books[book.ID] = &clone
}

func (f *fakeBookRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	book, ok := f.books[id]
	if !ok {
		return nil, nil
	}
	clone := *book
	return &clone, nil
}

func (f *fakeBookRepo) matches(book *entity.Book, filter repository.BookFilter) bool {
	if !book.IsActive {
		return false
	}
	if filter.Query != "" &&
		!strings.Contains(strings.ToLower(book.Title), strings.ToLower(filter.Query)) &&
		!strings.Contains(strings.ToLower(book.Author), strings.ToLower(filter.Query)) {
		return false
	}
	if filter.Genre != "" && book.Genre != filter.Genre {
		return false
	}
	if filter.Author != "" && !strings.Contains(strings.ToLower(book.Author), strings.ToLower(filter.Author)) {
		return false
	}
	if filter.MinPrice != nil && book.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && book.Price > *filter.MaxPrice {
		return false
	}
	if filter.MinRating != nil && book.Rating < *filter.MinRating {
		return false
	}
	return true
}

func (f *fakeBookRepo) Search(_ context.Context, filter repository.BookFilter, limit, offset int) ([]*entity.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*entity.Book
	for _, book := range f.books {
		if f.matches(book, filter) {
			clone := *book
			result = append(result, &clone)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeBookRepo) Count(_ context.Context, filter repository.BookFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, book := range f.books {
		if f.matches(book, filter) {
			count++
		}
	}
	return count, nil
}

func (f *fakeBookRepo) FindGenres(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var genres []string
	for _, book := range f.books {
		if book.IsActive && !seen[book.Genre] {
			seen[book.Genre] = true
			genres = append(genres, book.Genre)
		}
	}
	return genres, nil
}

func (f *fakeBookRepo) CountCompletedPurchases(_ context.Context, bookID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.purchaseCount[bookID], nil
}

type fakePurchaseRepo struct {
	mu        sync.Mutex
	purchases map[uuid.UUID]*entity.Purchase
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{purchases: make(map[uuid.UUID]*entity.Purchase)}
}

func (f *fakePurchaseRepo) Create(_ context.Context, purchase *entity.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if purchase.Status == entity.PurchaseStatusCompleted {
		for _, existing := range f.purchases {
			if existing.UserID == purchase.UserID &&
				existing.BookID == purchase.BookID &&
				existing.Status == entity.PurchaseStatusCompleted {
				return repository.ErrDuplicatePurchase
			}
		}
	}
	clone := *purchase
	f.purchases[purchase.ID] = &clone
	return nil
}

func (f *fakePurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.purchases[id]
	if !ok {
		return nil, nil
	}
	clone := *purchase
	return &clone, nil
}

func (f *fakePurchaseRepo) FindCompletedByUserAndBook(_ context.Context, userID, bookID uuid.UUID) (*entity.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, purchase := range f.purchases {
		if purchase.UserID == userID && purchase.BookID == bookID &&
			purchase.Status == entity.PurchaseStatusCompleted {
			clone := *purchase
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePurchaseRepo) FindByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*entity.Purchase
	for _, purchase := range f.purchases {
		if purchase.UserID == userID {
			clone := *purchase
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakePurchaseRepo) FindCompletedByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*entity.Purchase
	for _, purchase := range f.purchases {
		if purchase.UserID == userID && purchase.Status == entity.PurchaseStatusCompleted {
			clone := *purchase
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (f *fakePurchaseRepo) UpdateStatus(_ context.Context, purchaseID uuid.UUID, status entity.PurchaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if purchase, ok := f.purchases[purchaseID]; ok {
		purchase.Status = status
		purchase.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakePurchaseRepo) IncrementDownload(_ context.Context, purchaseID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	purchase, ok := f.purchases[purchaseID]
	if !ok {
		return false, nil
	}
	if purchase.Status != entity.PurchaseStatusCompleted || purchase.DownloadCount >= purchase.MaxDownloads {
		return false, nil
	}
	purchase.DownloadCount++
	return true, nil
}

func (f *fakePurchaseRepo) completedCount(userID, bookID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, purchase := range f.purchases {
		if purchase.UserID == userID && purchase.BookID == bookID &&
			purchase.Status == entity.PurchaseStatusCompleted {
			count++
		}
	}
	return count
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*entity.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[uuid.UUID]*entity.RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(_ context.Context, token *entity.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeRefreshTokenRepo) FindByTokenHash(_ context.Context, tokenHash string) (*entity.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			clone := *token
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRefreshTokenRepo) Revoke(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token, ok := f.tokens[id]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) activeCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, token := range f.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			count++
		}
	}
	return count
}

type fakeEntitlementCache struct {
	mu   sync.Mutex
	sets map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeEntitlementCache() *fakeEntitlementCache {
	return &fakeEntitlementCache{sets: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (f *fakeEntitlementCache) Grant(_ context.Context, userID, bookID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[userID] == nil {
		f.sets[userID] = make(map[uuid.UUID]bool)
	}
	f.sets[userID][bookID] = true
	return nil
}

func (f *fakeEntitlementCache) Revoke(_ context.Context, userID, bookID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.sets[userID]; ok {
		delete(set, bookID)
	}
	return nil
}

func (f *fakeEntitlementCache) IsOwned(_ context.Context, userID, bookID uuid.UUID) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[userID]
	if !ok {
		return false, false, nil
	}
	return set[bookID], true, nil
}

func (f *fakeEntitlementCache) Warm(_ context.Context, userID uuid.UUID, bookIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := make(map[uuid.UUID]bool, len(bookIDs))
	for _, id := range bookIDs {
		set[id] = true
	}
	f.sets[userID] = set
	return nil
}

func (f *fakeEntitlementCache) Ping(_ context.Context) error { return nil }
func (f *fakeEntitlementCache) Close() error                 { return nil }

func (f *fakeEntitlementCache) owns(userID, bookID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[userID][bookID]
}

type fakeObjectStore struct{}

func (fakeObjectStore) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://files.test/" + key + "?signature=fake", nil
}

func newTestRepository() (*repository.Repository, *fakeUserRepo, *fakeBookRepo, *fakePurchaseRepo, *fakeRefreshTokenRepo) {
	users := newFakeUserRepo()
	books := newFakeBookRepo()
	purchases := newFakePurchaseRepo()
	tokens := newFakeRefreshTokenRepo()

	repo := &repository.Repository{
		User:         users,
		Book:         books,
		Purchase:     purchases,
		RefreshToken: tokens,
	}
	return repo, users, books, purchases, tokens
}

func testConfig() *utils.Config {
	return &utils.Config{
		JWT: utils.JWTConfig{
			Secret:             "test-secret",
			AccessExpiryMin:    15,
			RefreshExpiryHours: 720,
		},
		Download: utils.DownloadConfig{
			URLExpirySeconds: 3600,
			MaxPerPurchase:   5,
		},
	}
}

func seedUser(users *fakeUserRepo, email, password string) *entity.User {
	hash, _ := utils.HashPassword(password)
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "Reader",
		IsActive:     true,
	}
	users.Create(context.Background(), user)
	return user
}

func seedBook(books *fakeBookRepo, title string, price float64) *entity.Book {
	fileKey := "books/" + uuid.New().String() + ".epub"
	book := &entity.Book{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		Title:         title,
		Author:        "Jane Author",
		Price:         price,
		Genre:         "fiction",
		Rating:        4.2,
		RatingCount:   10,
		PublishedDate: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		FileKey:       &fileKey,
		IsActive:      true,
	}
	books.add(book)
	return book
}
