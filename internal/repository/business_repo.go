package repository

import (
	"context"

	"pos-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessRepository is the membership boundary the ledger consults before
// touching a tenant's data.
type BusinessRepository interface {
	Create(ctx context.Context, b *model.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error)
	AddMember(ctx context.Context, m *model.BusinessMember) error
	IsMember(ctx context.Context, businessID, userID uuid.UUID) (bool, error)
}

type businessRepo struct {
	db *gorm.DB
}

func NewBusinessRepo(db *gorm.DB) BusinessRepository {
	return &businessRepo{db}
}

func (r *businessRepo) Create(ctx context.Context, b *model.Business) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *businessRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	var b model.Business
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *businessRepo) AddMember(ctx context.Context, m *model.BusinessMember) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *businessRepo) IsMember(ctx context.Context, businessID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BusinessMember{}).
		Where("business_id = ? AND user_id = ?", businessID, userID).
		Count(&count).Error
	return count > 0, translate(err)
}
