package service

import (
	"context"
	"testing"

	"anoa.com/creatorviewer/internal/dto"
	"anoa.com/creatorviewer/internal/model"
	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	if u, ok := f.users[uid]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	return &model.Role{ID: 1, Name: name}, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) TopViewersByPoints(ctx context.Context, limit int) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.Role.Name == model.RoleViewer {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) TransferPoints(ctx context.Context, fromID, toID uuid.UUID, points int) error {
	from, ok := f.users[fromID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if from.Points < points {
		return apperror.New(400, "insufficient points", apperror.ErrBadRequest)
	}
	to, ok := f.users[toID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	from.Points -= points
	to.Points += points
	return nil
}

func seedUser(repo *fakeUserRepo, role string, points int) *model.User {
	u := &model.User{
		ID:       uuid.New(),
		Username: role + "-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		Role:     model.Role{Name: role},
		Points:   points,
	}
	repo.users[u.ID] = u
	return u
}

func TestTransferPoints(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, newFakeWatchRepo(), nil, nil)

	creator := seedUser(userRepo, model.RoleCreator, 100)
	viewer := seedUser(userRepo, model.RoleViewer, 0)

	res, err := svc.TransferPoints(context.Background(), creator, dto.TransferPointsInput{
		RecipientID: viewer.ID,
		Points:      40,
	})
	require.NoError(t, err)

	assert.Equal(t, 60, res.Points)
	assert.Equal(t, 40, userRepo.users[viewer.ID].Points)
}

func TestTransferPointsSenderMustBeCreator(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, newFakeWatchRepo(), nil, nil)

	viewer := seedUser(userRepo, model.RoleViewer, 100)
	creator := seedUser(userRepo, model.RoleCreator, 0)

	_, err := svc.TransferPoints(context.Background(), viewer, dto.TransferPointsInput{
		RecipientID: creator.ID,
		Points:      10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Equal(t, 100, userRepo.users[viewer.ID].Points)
}

func TestTransferPointsToAnyRecipientRole(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, newFakeWatchRepo(), nil, nil)

	creator := seedUser(userRepo, model.RoleCreator, 100)
	otherCreator := seedUser(userRepo, model.RoleCreator, 0)

	res, err := svc.TransferPoints(context.Background(), creator, dto.TransferPointsInput{
		RecipientID: otherCreator.ID,
		Points:      25,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, res.Points)
	assert.Equal(t, 25, userRepo.users[otherCreator.ID].Points)
}

func TestTransferPointsToSelfRejected(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, newFakeWatchRepo(), nil, nil)

	creator := seedUser(userRepo, model.RoleCreator, 100)

	_, err := svc.TransferPoints(context.Background(), creator, dto.TransferPointsInput{
		RecipientID: creator.ID,
		Points:      10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestTransferPointsUnknownRecipient(t *testing.T) {
	userRepo := newFakeUserRepo()
	svc := NewUserService(userRepo, newFakeWatchRepo(), nil, nil)

	creator := seedUser(userRepo, model.RoleCreator, 100)

	_, err := svc.TransferPoints(context.Background(), creator, dto.TransferPointsInput{
		RecipientID: uuid.New(),
		Points:      10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
