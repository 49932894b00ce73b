package vo_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestProgressEventHidesOwner(t *testing.T) {
	record := &po.UploadRecord{ID: uuid.New(), OwnerID: uuid.New(), Status: po.UploadStatusUploading, Progress: 42}
	event := vo.NewProgressEvent(record)
	require.Equal(t, record.OwnerID, event.OwnerID)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, record.ID.String(), decoded["uploadId"])
	require.EqualValues(t, 42, decoded["progress"])
	require.Equal(t, "uploading", decoded["status"])
	require.NotContains(t, decoded, "ownerId")
}

func TestUploadViewCopiesRecord(t *testing.T) {
	ref := "yt-1"
	now := time.Now().UTC()
	record := &po.UploadRecord{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Title:       "clip",
		FileName:    "clip.mp4",
		SizeBytes:   10,
		ExternalRef: &ref,
		Status:      po.UploadStatusCompleted,
		Progress:    100,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	view := vo.NewUploadView(record)
	require.Equal(t, record.ID, view.ID)
	require.Equal(t, "completed", view.Status)
	require.Equal(t, "yt-1", *view.ExternalRef)

	progress := vo.NewProgressView(record)
	require.EqualValues(t, 100, progress.Progress)
	require.Equal(t, "completed", progress.Status)

	require.Nil(t, vo.NewUploadView(nil))
	require.Nil(t, vo.NewProgressView(nil))
}
