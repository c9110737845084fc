package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannels struct {
	existing map[int64]bool
	err      error
}

func (f *fakeChannels) ChannelExists(ctx context.Context, channelID int64) (bool, error) {
	return f.existing[channelID], f.err
}

type fakeAuthority struct {
	members map[int64]map[int64]bool // userID -> channelID -> member
	err     error
}

func (f *fakeAuthority) IsMember(ctx context.Context, userID int64, channelID int64) (bool, error) {
	return f.members[userID][channelID], f.err
}

type fakeStore struct {
	mutex   sync.Mutex
	created []models.Message
	err     error
}

func (f *fakeStore) Create(ctx context.Context, draft models.Message) (models.Message, error) {
	if f.err != nil {
		return models.Message{}, f.err
	}

	id, err := snowflake.Generate()
	if err != nil {
		return models.Message{}, err
	}
	draft.ID = id

	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.created = append(f.created, draft)
	return draft, nil
}

type fakeBroadcaster struct {
	mutex    sync.Mutex
	payloads map[int64][][]byte
}

func (f *fakeBroadcaster) Broadcast(channelID int64, payload []byte) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.payloads == nil {
		f.payloads = make(map[int64][][]byte)
	}
	f.payloads[channelID] = append(f.payloads[channelID], payload)
}

func (f *fakeBroadcaster) sent(channelID int64) [][]byte {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.payloads[channelID]
}

func newTestPipeline(channels *fakeChannels, authority *fakeAuthority, store *fakeStore, broadcaster *fakeBroadcaster) *Pipeline {
	return New(channels, authority, store, broadcaster, zap.NewNop().Sugar())
}

func memberOf(userID, channelID int64) *fakeAuthority {
	return &fakeAuthority{members: map[int64]map[int64]bool{userID: {channelID: true}}}
}

func TestIngestTextMessage(t *testing.T) {
	store := &fakeStore{}
	broadcaster := &fakeBroadcaster{}
	p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, memberOf(1, 7), store, broadcaster)

	msg, err := p.Ingest(context.Background(), 7, 1, Input{Type: models.TypeText, Content: "hi"})
	require.NoError(t, err)

	assert.NotZero(t, msg.ID)
	assert.Equal(t, models.TypeText, msg.Type)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, int64(7), msg.ChannelID)
	assert.Equal(t, int64(1), msg.AuthorID)

	payloads := broadcaster.sent(7)
	require.Len(t, payloads, 1)

	var envelope struct {
		Event string         `json:"event"`
		Data  models.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payloads[0], &envelope))
	assert.Equal(t, "MessageCreated", envelope.Event)
	assert.Equal(t, "hi", envelope.Data.Content)
	assert.Equal(t, msg.ID, envelope.Data.ID)
}

func TestIngestDerivesTypeFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        models.MessageType
	}{
		{"image/png", models.TypeImage},
		{"video/mp4", models.TypeVideo},
		{"audio/ogg", models.TypeAudio},
		{"application/pdf", models.TypeFile},
	}

	for _, tc := range tests {
		store := &fakeStore{}
		p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, memberOf(1, 7), store, &fakeBroadcaster{})

		msg, err := p.Ingest(context.Background(), 7, 1, Input{
			File: &models.FileDescriptor{Key: "media/abc.bin", ContentType: tc.contentType, FileName: "a"},
		})
		require.NoError(t, err, tc.contentType)
		assert.Equal(t, tc.want, msg.Type, tc.contentType)
	}
}

func TestIngestUnknownChannel(t *testing.T) {
	p := newTestPipeline(&fakeChannels{}, memberOf(1, 7), &fakeStore{}, &fakeBroadcaster{})

	_, err := p.Ingest(context.Background(), 7, 1, Input{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIngestNonMemberIsForbidden(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, &fakeAuthority{}, &fakeStore{}, broadcaster)

	_, err := p.Ingest(context.Background(), 7, 2, Input{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Empty(t, broadcaster.sent(7))
}

func TestIngestAuthorityErrorIsInternal(t *testing.T) {
	p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}},
		&fakeAuthority{err: errors.New("db down")}, &fakeStore{}, &fakeBroadcaster{})

	_, err := p.Ingest(context.Background(), 7, 1, Input{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestIngestPayloadValidation(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{
			name:  "both content and file descriptor",
			input: Input{Content: "hi", File: &models.FileDescriptor{Key: "media/x", ContentType: "image/png"}},
		},
		{
			name:  "neither content nor file descriptor",
			input: Input{Type: models.TypeText},
		},
		{
			name:  "text type with file descriptor",
			input: Input{Type: models.TypeText, File: &models.FileDescriptor{Key: "media/x", ContentType: "image/png"}},
		},
		{
			name:  "image type with bare text",
			input: Input{Type: models.TypeImage, Content: "hi"},
		},
		{
			name:  "declared type contradicts content type",
			input: Input{Type: models.TypeAudio, File: &models.FileDescriptor{Key: "media/x", ContentType: "image/png"}},
		},
		{
			name:  "file descriptor missing key",
			input: Input{File: &models.FileDescriptor{ContentType: "image/png"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			broadcaster := &fakeBroadcaster{}
			p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, memberOf(1, 7), store, broadcaster)

			_, err := p.Ingest(context.Background(), 7, 1, tc.input)
			assert.ErrorIs(t, err, apperr.ErrBadRequest)

			// rejected before any persistence or broadcast
			assert.Empty(t, store.created)
			assert.Empty(t, broadcaster.sent(7))
		})
	}
}

func TestPersistFailureSkipsBroadcast(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, memberOf(1, 7),
		&fakeStore{err: errors.New("storage unavailable")}, broadcaster)

	_, err := p.Ingest(context.Background(), 7, 1, Input{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Empty(t, broadcaster.sent(7))
}

func TestConcurrentIngestionsEachBroadcastOnce(t *testing.T) {
	store := &fakeStore{}
	broadcaster := &fakeBroadcaster{}
	p := newTestPipeline(&fakeChannels{existing: map[int64]bool{7: true}}, memberOf(1, 7), store, broadcaster)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Ingest(context.Background(), 7, 1, Input{Content: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, store.created, 2)
	assert.Len(t, broadcaster.sent(7), 2)
}
