package dto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// ListParams 为 GET /videos 的分页窗口。
type ListParams struct {
	Limit  int32
	Offset int32
}

// ParseListParams 解析 limit 与 offset，缺省时使用默认值。
func ParseListParams(limitRaw, offsetRaw string) (ListParams, error) {
	params := ListParams{Limit: defaultListLimit}
	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return ListParams{}, fmt.Errorf("limit must be a positive integer")
		}
		params.Limit = int32(n)
	}
	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return ListParams{}, fmt.Errorf("offset must be a non-negative integer")
		}
		params.Offset = int32(n)
	}
	return params, nil
}

// ParseUploadID 解析路径或查询参数中的 upload id。
func ParseUploadID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid upload id %q", raw)
	}
	return id, nil
}
