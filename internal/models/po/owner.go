package po

import (
	"time"

	"github.com/google/uuid"
)

// Owner 表示可提交上传的用户，以及传输目标代其操作所用的 OAuth token。
type Owner struct {
	ID           uuid.UUID
	Email        string
	GoogleID     string
	AccessToken  *string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
