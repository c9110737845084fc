package ingest

import (
	"context"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/models"

	"go.uber.org/zap"
)

// The pipeline's collaborators, narrowed to what ingestion needs.
type ChannelStore interface {
	ChannelExists(ctx context.Context, channelID int64) (bool, error)
}

type MessageCreator interface {
	Create(ctx context.Context, draft models.Message) (models.Message, error)
}

type Authority interface {
	IsMember(ctx context.Context, userID int64, channelID int64) (bool, error)
}

type Broadcaster interface {
	Broadcast(channelID int64, payload []byte)
}

// Input is a submitted message before validation: a declared type plus either
// text content or the file descriptor produced by the upload path.
type Input struct {
	Type    models.MessageType     `json:"type"`
	Content string                 `json:"content"`
	File    *models.FileDescriptor `json:"file"`
}

// Pipeline turns a submitted message into a durable, broadcast record:
// authorize, validate, persist, then fan out. Persistence always precedes
// broadcast, and a failed broadcast never rolls the message back.
type Pipeline struct {
	channels  ChannelStore
	authority Authority
	store     MessageCreator
	hub       Broadcaster
	sugar     *zap.SugaredLogger
}

func New(channels ChannelStore, authority Authority, store MessageCreator, broadcaster Broadcaster, sugar *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		channels:  channels,
		authority: authority,
		store:     store,
		hub:       broadcaster,
		sugar:     sugar,
	}
}

func (p *Pipeline) Ingest(ctx context.Context, channelID int64, authorID int64, input Input) (models.Message, error) {
	exists, err := p.channels.ChannelExists(ctx, channelID)
	if err != nil {
		return models.Message{}, apperr.Internal(err)
	}
	if !exists {
		return models.Message{}, apperr.NotFound("channel %d", channelID)
	}

	isMember, err := p.authority.IsMember(ctx, authorID, channelID)
	if err != nil {
		return models.Message{}, apperr.Internal(err)
	}
	if !isMember {
		return models.Message{}, apperr.Forbidden("user %d is not a member of channel %d", authorID, channelID)
	}

	msgType, err := validate(input)
	if err != nil {
		return models.Message{}, err
	}

	persisted, err := p.store.Create(ctx, models.Message{
		ChannelID: channelID,
		AuthorID:  authorID,
		Type:      msgType,
		Content:   input.Content,
		File:      input.File,
	})
	if err != nil {
		return models.Message{}, apperr.Internal(err)
	}

	payload, err := hub.Event(hub.MessageCreated, persisted)
	if err != nil {
		// the message is durable; a marshalling fault must not fail the request
		p.sugar.Error(err)
		return persisted, nil
	}
	p.hub.Broadcast(channelID, payload)

	return persisted, nil
}

// validate enforces the text-content XOR file-descriptor rule and resolves
// the effective message type. A missing declared type is derived from the
// payload; a declared type that contradicts it is rejected.
func validate(input Input) (models.MessageType, error) {
	if input.Content != "" && input.File != nil {
		return "", apperr.BadRequest("message carries both text content and a file descriptor")
	}

	if input.File != nil {
		if input.File.Key == "" || input.File.ContentType == "" {
			return "", apperr.BadRequest("file descriptor is missing its key or content type")
		}

		derived := models.TypeFromContentType(input.File.ContentType)
		if input.Type == "" || input.Type == derived {
			return derived, nil
		}
		return "", apperr.BadRequest("declared type %s does not match content type %s", input.Type, input.File.ContentType)
	}

	if input.Content == "" {
		return "", apperr.BadRequest("message carries neither text content nor a file descriptor")
	}

	if input.Type != "" && input.Type != models.TypeText {
		return "", apperr.BadRequest("declared type %s requires a file descriptor", input.Type)
	}
	return models.TypeText, nil
}
