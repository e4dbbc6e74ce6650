package memory

import (
	"context"
	"sync"
	"time"

	"github.com/commercekit/loyalty-backend/internal/models"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure AdminUserRepository implements the interface
var _ repositories.AdminUserRepository = (*AdminUserRepository)(nil)

// AdminUserRepository is an in-memory AdminUserRepository. Lookups that miss
// return mongo.ErrNoDocuments so callers see the same sentinel as the MongoDB
// implementation.
type AdminUserRepository struct {
	mu      sync.Mutex
	byEmail map[string]*models.AdminUser
	byID    map[primitive.ObjectID]*models.AdminUser
}

// NewAdminUserRepository creates an empty in-memory AdminUserRepository
func NewAdminUserRepository() *AdminUserRepository {
	return &AdminUserRepository{
		byEmail: make(map[string]*models.AdminUser),
		byID:    make(map[primitive.ObjectID]*models.AdminUser),
	}
}

// Create inserts a new admin user
func (r *AdminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	adminUser.ID = primitive.NewObjectID()
	adminUser.CreatedAt = time.Now()
	adminUser.UpdatedAt = time.Now()
	stored := *adminUser
	r.byEmail[adminUser.Email] = &stored
	r.byID[adminUser.ID] = &stored
	return nil
}

// FindByEmail finds an admin user by email
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	adminUser, ok := r.byEmail[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c := *adminUser
	return &c, nil
}

// FindByID finds an admin user by ID
func (r *AdminUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	adminUser, ok := r.byID[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	c := *adminUser
	return &c, nil
}
