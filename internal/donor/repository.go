// File: internal/donor/repository.go
package donor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hemato_backend/internal/common"
)

// Repository defines the interface for donor record persistence.
type Repository interface {
	Create(ctx context.Context, donor *Donor) error
	FindAll(ctx context.Context) ([]Donor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Donor, error)
	FindByVerificationToken(ctx context.Context, token string) ([]Donor, error)
	FindByOwnerUID(ctx context.Context, uid string) ([]Donor, error)
	// MarkVerified flips every listed record to verified and clears its token
	// in one transaction. Either all listed records are updated or none are.
	MarkVerified(ctx context.Context, ids []uuid.UUID) error
	// Delete removes a record by id. Absent ids are not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteStalePending removes anonymous records still unverified after the
	// cutoff. Returns the number of records removed.
	DeleteStalePending(ctx context.Context, before time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM donor repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, donor *Donor) error {
	return r.db.WithContext(ctx).Create(donor).Error
}

func (r *gormRepository) FindAll(ctx context.Context) ([]Donor, error) {
	var donors []Donor
	err := r.db.WithContext(ctx).Find(&donors).Error
	return donors, err
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Donor, error) {
	var donor Donor
	err := r.db.WithContext(ctx).First(&donor, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Donor not found.")
		}
		return nil, err
	}
	return &donor, nil
}

func (r *gormRepository) FindByVerificationToken(ctx context.Context, token string) ([]Donor, error) {
	var donors []Donor
	err := r.db.WithContext(ctx).
		Where("verification_token = ? AND verification_token <> ''", token).
		Find(&donors).Error
	return donors, err
}

func (r *gormRepository) FindByOwnerUID(ctx context.Context, uid string) ([]Donor, error) {
	var donors []Donor
	err := r.db.WithContext(ctx).Where("owner_uid = ?", uid).Find(&donors).Error
	return donors, err
}

func (r *gormRepository) MarkVerified(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return common.ErrNotFound.WithDetails("No donor records to verify.")
	}
	// Tokens are issued unique, but the update stays safe under duplicates:
	// the whole batch commits or rolls back as one.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Donor{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"is_verified":        true,
				"verification_token": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return common.ErrNotFound.WithDetails("One or more donor records no longer exist.")
		}
		return nil
	})
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Idempotent: deleting an absent record is a no-op.
	return r.db.WithContext(ctx).Delete(&Donor{}, "id = ?", id).Error
}

func (r *gormRepository) DeleteStalePending(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_verified = ? AND owner_uid IS NULL AND created_at < ?", false, before).
		Delete(&Donor{})
	return res.RowsAffected, res.Error
}
