package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/user"
	"gorm.io/gorm"
)

// UserRepository is the gorm principal store. It serves both the auth and
// user services.
type UserRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepository(db *gorm.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

var _ user.RepositoryAPI = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewStoreUnavailableError("find user", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewStoreUnavailableError("find user by email", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]*userDatamodel.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var users []*userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, internal.NewStoreUnavailableError("find users", err)
	}
	return users, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *userDatamodel.User) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.ErrEmailTaken
		}
		return internal.NewStoreUnavailableError("insert user", err)
	}
	return nil
}

// UpdateFields writes only the named columns of u to the row with id.
// Zero values are written as given.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, u *userDatamodel.User, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	u.ID = id
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{ID: id}).
		Select(columns).
		Updates(u)
	if res.Error != nil {
		if stdErrors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return internal.ErrEmailTaken
		}
		return internal.NewStoreUnavailableError("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*userDatamodel.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var users []*userDatamodel.User
	if err := q.Order("name ASC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, internal.NewStoreUnavailableError("list users", err)
	}
	return users, nil
}
