package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// ErrMissingOwnerTokens 表示 owner 从未授予上传权限。
var ErrMissingOwnerTokens = errors.New("owner has no stored oauth tokens")

// YouTubeOption 用于定制 YouTube 适配器。
type YouTubeOption func(*YouTubeTransfer)

// WithYouTubeClientOptions 为每个构造的 service 追加 client 选项，例如测试端点。
func WithYouTubeClientOptions(opts ...option.ClientOption) YouTubeOption {
	return func(t *YouTubeTransfer) {
		t.clientOpts = append(t.clientOpts, opts...)
	}
}

// YouTubeTransfer 使用 owner 存储的 token 直接上传到其频道。
type YouTubeTransfer struct {
	oauth      *oauth2.Config
	privacy    string
	categoryID string
	clientOpts []option.ClientOption
	log        *log.Helper
}

// NewYouTubeTransfer 根据 OAuth client 凭证构造适配器。
func NewYouTubeTransfer(auth configloader.AuthConfig, cfg configloader.YouTubeConfig, logger log.Logger, opts ...YouTubeOption) (*YouTubeTransfer, error) {
	if auth.GoogleClientID == "" || auth.GoogleClientSecret == "" {
		return nil, errors.New("youtube transfer: google client id and secret are required")
	}
	t := &YouTubeTransfer{
		oauth: &oauth2.Config{
			ClientID:     auth.GoogleClientID,
			ClientSecret: auth.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{youtube.YoutubeUploadScope},
		},
		privacy:    cfg.PrivacyStatus,
		categoryID: cfg.CategoryID,
		log:        log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name 实现 services.TransferAdapter。
func (t *YouTubeTransfer) Name() string { return "youtube" }

// Transfer 插入视频并返回平台侧 ID。
func (t *YouTubeTransfer) Transfer(ctx context.Context, req services.TransferRequest, progress services.ProgressFunc) (*services.TransferResult, error) {
	token := &oauth2.Token{TokenType: "Bearer"}
	if req.AccessToken != nil {
		token.AccessToken = *req.AccessToken
	}
	if req.RefreshToken != nil {
		token.RefreshToken = *req.RefreshToken
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, ErrMissingOwnerTokens
	}

	opts := append([]option.ClientOption{option.WithTokenSource(t.oauth.TokenSource(ctx, token))}, t.clientOpts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			CategoryId:  t.categoryID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: t.privacy},
	}
	total := int64(len(req.Data))
	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(bytes.NewReader(req.Data), googleapi.ContentType(req.ContentType)).
		ProgressUpdater(func(current, _ int64) {
			if progress != nil {
				progress(current, total)
			}
		})

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube insert: %w", err)
	}
	if resp.Id == "" {
		return nil, errors.New("youtube insert: empty video id")
	}
	t.log.WithContext(ctx).Infof("youtube upload finished: upload_id=%s video_id=%s", req.UploadID, resp.Id)
	return &services.TransferResult{ExternalRef: resp.Id}, nil
}
