package repository

import (
	"context"
	"errors"

	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindRoleByName(ctx context.Context, name string) (*model.Role, error)
	Update(ctx context.Context, user *model.User) error
	Count(ctx context.Context) (int64, error)
	TopViewersByPoints(ctx context.Context, limit int) ([]*model.User, error)
	TransferPoints(ctx context.Context, fromID, toID uuid.UUID, points int) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}

	return &role, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) TopViewersByPoints(ctx context.Context, limit int) ([]*model.User, error) {
	var users []*model.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ?", model.RoleViewer).
		Order("users.points DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// TransferPoints moves points between two users in a single transaction,
// failing without side effects when the sender balance is insufficient.
func (r *userRepository) TransferPoints(ctx context.Context, fromID, toID uuid.UUID, points int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND points >= ?", fromID, points).
			UpdateColumn("points", gorm.Expr("points - ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.New(400, "insufficient points", apperror.ErrBadRequest)
		}

		res = tx.Model(&model.User{}).
			Where("id = ?", toID).
			UpdateColumn("points", gorm.Expr("points + ?", points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Join(apperror.ErrNotFound, errors.New("recipient not found"))
		}

		videoID := (*uuid.UUID)(nil)
		entries := []model.PointLog{
			{UserID: fromID, VideoID: videoID, Reason: model.ReasonTransferOut, Points: -points},
			{UserID: toID, VideoID: videoID, Reason: model.ReasonTransferIn, Points: points},
		}
		return tx.Create(&entries).Error
	})
}
