package clients_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/clients"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type capturedForm struct {
	secret   string
	fields   map[string]string
	fileName string
	fileType string
	file     []byte
}

func webhookServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedForm) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured = &capturedForm{fields: map[string]string{}}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		captured.secret = r.Header.Get("X-N8N-Secret")
		for k, v := range r.MultipartForm.Value {
			captured.fields[k] = v[0]
		}
		file, header, err := r.FormFile("file")
		if err == nil {
			captured.fileName = header.Filename
			captured.fileType = header.Header.Get("Content-Type")
			captured.file, _ = io.ReadAll(file)
			_ = file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func transferRequest() services.TransferRequest {
	return services.TransferRequest{
		UploadID:    uuid.New(),
		OwnerID:     uuid.New(),
		OwnerEmail:  "owner@example.com",
		Title:       "Trip",
		Description: "summer",
		FileName:    "trip.mp4",
		ContentType: "video/mp4",
		Data:        []byte("0123456789abcdef"),
	}
}

func newWebhook(t *testing.T, url string, await bool) *clients.WebhookTransfer {
	t.Helper()
	adapter, cleanup, err := clients.NewWebhookTransfer(context.Background(), configloader.WebhookConfig{
		URL:           url,
		Secret:        "hook-secret",
		AwaitCallback: await,
	}, 5*time.Second, log.DefaultLogger)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return adapter
}

func TestWebhookTransferPostsForm(t *testing.T) {
	srv, captured := webhookServer(t, http.StatusOK, `{"youtubeId":"yt-42"}`)
	adapter := newWebhook(t, srv.URL+"/webhook/upload", false)
	req := transferRequest()

	var (
		mu    sync.Mutex
		sent  []int64
		total int64
	)
	result, err := adapter.Transfer(context.Background(), req, func(n, of int64) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, n)
		total = of
	})
	require.NoError(t, err)
	require.Equal(t, "yt-42", result.ExternalRef)
	require.False(t, result.Deferred)

	mu.Lock()
	require.NotEmpty(t, sent)
	require.IsNonDecreasing(t, sent)
	require.EqualValues(t, len(req.Data), sent[len(sent)-1])
	require.EqualValues(t, len(req.Data), total)
	mu.Unlock()

	require.Equal(t, "hook-secret", captured.secret)
	require.Equal(t, "Trip", captured.fields["title"])
	require.Equal(t, "summer", captured.fields["description"])
	require.Equal(t, "owner@example.com", captured.fields["userEmail"])
	require.Equal(t, req.UploadID.String(), captured.fields["uploadId"])
	require.Equal(t, "trip.mp4", captured.fileName)
	require.Equal(t, "video/mp4", captured.fileType)
	require.Equal(t, req.Data, captured.file)
}

func TestWebhookTransferReferenceFallbacks(t *testing.T) {
	cases := map[string]struct {
		reply string
		want  func(services.TransferRequest) string
	}{
		"externalRef": {`{"externalRef":"ext-1","youtubeId":"yt"}`, func(services.TransferRequest) string { return "ext-1" }},
		"uploadId":    {`{"uploadId":"remote-7"}`, func(services.TransferRequest) string { return "remote-7" }},
		"empty body":  {``, func(r services.TransferRequest) string { return r.UploadID.String() }},
		"not json":    {`accepted`, func(r services.TransferRequest) string { return r.UploadID.String() }},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := webhookServer(t, http.StatusOK, tc.reply)
			adapter := newWebhook(t, srv.URL, false)
			req := transferRequest()

			result, err := adapter.Transfer(context.Background(), req, nil)
			require.NoError(t, err)
			require.Equal(t, tc.want(req), result.ExternalRef)
		})
	}
}

func TestWebhookTransferAwaitCallbackDefers(t *testing.T) {
	srv, _ := webhookServer(t, http.StatusAccepted, `{"youtubeId":"ignored"}`)
	adapter := newWebhook(t, srv.URL, true)

	result, err := adapter.Transfer(context.Background(), transferRequest(), nil)
	require.NoError(t, err)
	require.True(t, result.Deferred)
	require.Empty(t, result.ExternalRef)
}

func TestWebhookTransferNon2xxFails(t *testing.T) {
	srv, _ := webhookServer(t, http.StatusInternalServerError, `{"message":"workflow crashed"}`)
	adapter := newWebhook(t, srv.URL, false)

	_, err := adapter.Transfer(context.Background(), transferRequest(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestWebhookTransferHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	adapter := newWebhook(t, srv.URL, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := adapter.Transfer(ctx, transferRequest(), nil)
	require.Error(t, err)
}

func TestNewWebhookTransferValidatesURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		_, _, err := clients.NewWebhookTransfer(context.Background(), configloader.WebhookConfig{URL: raw}, time.Second, log.DefaultLogger)
		require.Errorf(t, err, "url %q", raw)
	}
}

func TestNewTransferAdapterRejectsUnknown(t *testing.T) {
	_, _, err := clients.NewTransferAdapter(context.Background(), configloader.TransferConfig{Adapter: "ftp"},
		configloader.AuthConfig{}, configloader.UploadConfig{}, log.DefaultLogger)
	require.Error(t, err)
}

func TestNewTransferAdapterBuildsWebhook(t *testing.T) {
	srv, _ := webhookServer(t, http.StatusOK, `{}`)
	adapter, cleanup, err := clients.NewTransferAdapter(context.Background(),
		configloader.TransferConfig{Adapter: configloader.AdapterWebhook, Webhook: configloader.WebhookConfig{URL: srv.URL}},
		configloader.AuthConfig{},
		configloader.UploadConfig{TransferTimeout: configloader.Duration(time.Second)},
		log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()
	require.Equal(t, "webhook", adapter.Name())
}
