package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOwnerNotFound 表示没有匹配查询条件的 owner。
var ErrOwnerNotFound = errors.New("owner not found")

const ownerColumns = `id, email, google_id, access_token, refresh_token, created_at, updated_at`

const (
	getOwnerByIDSQL    = `SELECT ` + ownerColumns + ` FROM uploads.owners WHERE id = $1`
	getOwnerByEmailSQL = `SELECT ` + ownerColumns + ` FROM uploads.owners WHERE lower(email) = lower($1)`

	upsertOwnerSQL = `INSERT INTO uploads.owners (id, email, google_id, access_token, refresh_token)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (google_id) DO UPDATE
SET email = EXCLUDED.email,
    access_token = EXCLUDED.access_token,
    refresh_token = COALESCE(EXCLUDED.refresh_token, uploads.owners.refresh_token),
    updated_at = now()
RETURNING ` + ownerColumns
)

// OwnerRepository 封装 uploads.owners 表的访问逻辑。
type OwnerRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewOwnerRepository 构造 OwnerRepository。
func NewOwnerRepository(db *pgxpool.Pool, logger log.Logger) *OwnerRepository {
	return &OwnerRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// GetByID 按主键查询 owner。
func (r *OwnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*po.Owner, error) {
	owner, err := scanOwner(r.db.QueryRow(ctx, getOwnerByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		r.log.WithContext(ctx).Errorf("get owner failed: owner_id=%s err=%v", id, err)
		return nil, fmt.Errorf("get owner: %w", err)
	}
	return owner, nil
}

// GetByEmail 按邮箱查询 owner，不区分大小写。
func (r *OwnerRepository) GetByEmail(ctx context.Context, email string) (*po.Owner, error) {
	owner, err := scanOwner(r.db.QueryRow(ctx, getOwnerByEmailSQL, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		r.log.WithContext(ctx).Errorf("get owner by email failed: err=%v", err)
		return nil, fmt.Errorf("get owner by email: %w", err)
	}
	return owner, nil
}

// UpsertOwnerInput 携带登录流程签发的身份信息。
type UpsertOwnerInput struct {
	ID           uuid.UUID
	Email        string
	GoogleID     string
	AccessToken  *string
	RefreshToken *string
}

// Upsert 创建 owner 或刷新其 token；refresh token 为 nil 时保留已存储的值。
func (r *OwnerRepository) Upsert(ctx context.Context, input UpsertOwnerInput) (*po.Owner, error) {
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	owner, err := scanOwner(r.db.QueryRow(ctx, upsertOwnerSQL,
		id,
		strings.TrimSpace(input.Email),
		input.GoogleID,
		input.AccessToken,
		input.RefreshToken,
	))
	if err != nil {
		r.log.WithContext(ctx).Errorf("upsert owner failed: google_id=%s err=%v", input.GoogleID, err)
		return nil, fmt.Errorf("upsert owner: %w", err)
	}
	return owner, nil
}

func scanOwner(row pgx.Row) (*po.Owner, error) {
	var owner po.Owner
	if err := row.Scan(
		&owner.ID,
		&owner.Email,
		&owner.GoogleID,
		&owner.AccessToken,
		&owner.RefreshToken,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &owner, nil
}
