// Package conversation manages chat threads and messages and brokers user messages to
// the external AI agent.
//
// A message is persisted first, then sent to the agent synchronously; the reply is
// persisted as an assistant message. When only the reply fails to persist the call
// still succeeds and reports the failure in Exchange.Error. Agent failures are returned
// as upstream errors and never roll back what was already written.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/gateway"
)

// Store is the persistence the service needs. *gateway.Gateway implements it.
type Store interface {
	InsertThread(ctx context.Context, thread *gateway.Thread) (*gateway.Thread, error)
	FindThread(ctx context.Context, id uuid.UUID) (*gateway.Thread, error)
	ListThreads(ctx context.Context, userID string, page gateway.Page) ([]*gateway.Thread, int, error)
	TouchThread(ctx context.Context, thread *gateway.Thread) error
	DeleteThread(ctx context.Context, id uuid.UUID) error

	InsertMessage(ctx context.Context, message *gateway.Message) (*gateway.Message, error)
	FindMessage(ctx context.Context, id uuid.UUID) (*gateway.Message, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, page gateway.Page) ([]*gateway.Message, int, error)
	UpdateMessage(ctx context.Context, id uuid.UUID, patch gateway.MessagePatch) (*gateway.Message, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) error
}

// Agent is the external AI agent. *agent.Client implements it.
type Agent interface {
	StartAgent(ctx context.Context, userID string) error
	Ask(ctx context.Context, userID, threadID, message string) (string, error)
}

// CreateThreadInput creates an empty thread.
type CreateThreadInput struct {
	Title   string `json:"title"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// ThreadCreated is the result of CreateThread.
type ThreadCreated struct {
	Thread  *gateway.Thread `json:"thread"`
	Content string          `json:"content,omitempty"`
}

// StartInput creates a thread together with its first message.
type StartInput struct {
	Role        gateway.Role   `json:"role"`
	Content     string         `json:"content"`
	ThreadTitle string         `json:"thread_title"`
	UserID      string         `json:"user_id"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate implements validation.Validatable.
func (in StartInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Role, validation.Required, validation.In(roleValues()...)),
		validation.Field(&in.Content, validation.Required),
	)
}

// Conversation is the result of StartConversation.
type Conversation struct {
	Thread  *gateway.Thread  `json:"thread"`
	Message *gateway.Message `json:"message"`
}

// CreateMessageInput appends a message to an existing thread.
type CreateMessageInput struct {
	ThreadID uuid.UUID      `json:"thread_id"`
	Role     gateway.Role   `json:"role"`
	Content  string         `json:"content"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata"`
}

// Validate implements validation.Validatable. A user message must carry a user id
// because the agent is asked on the user's behalf.
func (in CreateMessageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ThreadID, validation.By(notNilUUID)),
		validation.Field(&in.Role, validation.Required, validation.In(roleValues()...)),
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.UserID,
			validation.When(in.Role == gateway.RoleUser, validation.Required.Error("is required to get an AI response"))),
	)
}

// Exchange is the result of CreateMessage. AIMessage is nil when the reply could not be
// stored, in which case Error says so.
type Exchange struct {
	UserMessage *gateway.Message `json:"userMessage"`
	AIMessage   *gateway.Message `json:"aiMessage"`
	Error       string           `json:"-"`
}

// Service implements thread and message operations.
type Service struct {
	store  Store
	agent  Agent
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a conversation Service.
func NewService(store Store, agent Agent, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		agent:  agent,
		now:    time.Now,
		logger: logger.With("component", "conversation"),
	}
}

// CreateThread persists a thread titled from input.Title, or from input.Content when no
// title is given. When a user id is present the agent is started for that user; an
// agent failure is returned but the thread stays persisted.
func (s *Service) CreateThread(ctx context.Context, input CreateThreadInput) (ThreadCreated, error) {
	title := resolveTitle(input.Title, input.Content)

	thread, err := s.store.InsertThread(ctx, &gateway.Thread{Title: title, UserID: input.UserID})
	if err != nil {
		s.logger.Error("error creating thread", "error", err)
		return ThreadCreated{}, apperr.Upstream("Failed to create thread", err)
	}
	s.logger.Info("created thread", "thread_id", thread.ID, "title", title)

	if input.UserID != "" {
		if err := s.agent.StartAgent(ctx, input.UserID); err != nil {
			s.logger.Error("error starting AI agent", "thread_id", thread.ID, "error", err)
			return ThreadCreated{}, apperr.Upstream("Failed to start AI agent", err)
		}
	}

	return ThreadCreated{Thread: thread, Content: input.Content}, nil
}

// StartConversation creates a thread and its first message in one call, then starts
// the agent when a user id is present. Nothing is rolled back if the agent fails.
func (s *Service) StartConversation(ctx context.Context, input StartInput) (Conversation, error) {
	if err := input.Validate(); err != nil {
		return Conversation{}, apperr.Validation("%s", err.Error())
	}

	title := resolveTitle(input.ThreadTitle, input.Content)
	thread, err := s.store.InsertThread(ctx, &gateway.Thread{Title: title, UserID: input.UserID})
	if err != nil {
		s.logger.Error("error creating thread", "error", err)
		return Conversation{}, apperr.Upstream("Failed to create thread", err)
	}

	message, err := s.store.InsertMessage(ctx, &gateway.Message{
		ThreadID: thread.ID,
		Role:     input.Role,
		Content:  input.Content,
		UserID:   input.UserID,
		Metadata: input.Metadata,
	})
	if err != nil {
		s.logger.Error("error creating first message", "thread_id", thread.ID, "error", err)
		return Conversation{}, apperr.Upstream("Failed to create message", err)
	}
	s.logger.Info("started conversation", "thread_id", thread.ID, "message_id", message.ID)

	if input.UserID != "" {
		if err := s.agent.StartAgent(ctx, input.UserID); err != nil {
			s.logger.Error("error starting AI agent", "thread_id", thread.ID, "error", err)
			return Conversation{}, apperr.Upstream("Failed to start AI agent", err)
		}
	}

	return Conversation{Thread: thread, Message: message}, nil
}

// GetThread returns a thread or NotFound.
func (s *Service) GetThread(ctx context.Context, id uuid.UUID) (*gateway.Thread, error) {
	thread, err := s.store.FindThread(ctx, id)
	if err != nil {
		if gateway.IsNoRows(err) {
			return nil, apperr.NotFound("Thread with ID %s not found", id)
		}
		s.logger.Error("error fetching thread", "thread_id", id, "error", err)
		return nil, apperr.Upstream("Failed to fetch thread", err)
	}
	return thread, nil
}

// GetThreads lists threads by most recent activity, optionally for one user.
func (s *Service) GetThreads(ctx context.Context, userID string, limit, offset int) (gateway.Paged[*gateway.Thread], error) {
	threads, total, err := s.store.ListThreads(ctx, userID, gateway.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("error fetching threads", "error", err)
		return gateway.Paged[*gateway.Thread]{}, apperr.Upstream("Failed to fetch threads", err)
	}
	if threads == nil {
		threads = []*gateway.Thread{}
	}
	return gateway.Paged[*gateway.Thread]{Data: threads, Total: total, Limit: limit, Offset: offset}, nil
}

// DeleteThread removes a thread and its messages. Deleting a missing thread succeeds.
func (s *Service) DeleteThread(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteThread(ctx, id); err != nil {
		s.logger.Error("error deleting thread", "thread_id", id, "error", err)
		return apperr.Upstream("Failed to delete thread", err)
	}
	s.logger.Info("deleted thread", "thread_id", id)
	return nil
}

// CreateMessage appends a message to an existing thread, sends it to the agent whatever
// its role and stores the reply as an assistant message.
func (s *Service) CreateMessage(ctx context.Context, input CreateMessageInput) (Exchange, error) {
	if err := input.Validate(); err != nil {
		return Exchange{}, apperr.Validation("%s", err.Error())
	}

	thread, err := s.GetThread(ctx, input.ThreadID)
	if err != nil {
		return Exchange{}, err
	}

	userMessage, err := s.store.InsertMessage(ctx, &gateway.Message{
		ThreadID: thread.ID,
		Role:     input.Role,
		Content:  input.Content,
		UserID:   input.UserID,
		Metadata: input.Metadata,
	})
	if err != nil {
		s.logger.Error("error creating message", "thread_id", thread.ID, "error", err)
		return Exchange{}, apperr.Upstream("Failed to create message", err)
	}
	s.logger.Info("created message", "message_id", userMessage.ID, "thread_id", thread.ID)
	s.touch(ctx, thread)

	reply, err := s.agent.Ask(ctx, input.UserID, thread.ID.String(), input.Content)
	if err != nil {
		s.logger.Error("error getting AI response", "thread_id", thread.ID, "error", err)
		return Exchange{}, apperr.Upstream("Failed to get AI response", err)
	}

	aiMessage, err := s.store.InsertMessage(ctx, &gateway.Message{
		ThreadID: thread.ID,
		Role:     gateway.RoleAssistant,
		Content:  reply,
		Metadata: map[string]any{"timestamp": s.now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		s.logger.Error("error creating AI response message", "thread_id", thread.ID, "error", err)
		return Exchange{UserMessage: userMessage, Error: "Failed to create AI response"}, nil
	}
	s.logger.Info("created AI response", "message_id", aiMessage.ID, "thread_id", thread.ID)

	return Exchange{UserMessage: userMessage, AIMessage: aiMessage}, nil
}

// GetMessage returns a message or NotFound.
func (s *Service) GetMessage(ctx context.Context, id uuid.UUID) (*gateway.Message, error) {
	message, err := s.store.FindMessage(ctx, id)
	if err != nil {
		if gateway.IsNoRows(err) {
			return nil, apperr.NotFound("Message with ID %s not found", id)
		}
		s.logger.Error("error fetching message", "message_id", id, "error", err)
		return nil, apperr.Upstream("Failed to fetch message", err)
	}
	return message, nil
}

// GetMessagesByThread lists a thread's messages in chronological order. The thread must
// exist.
func (s *Service) GetMessagesByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) (gateway.Paged[*gateway.Message], error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return gateway.Paged[*gateway.Message]{}, err
	}

	messages, total, err := s.store.ListMessages(ctx, threadID, gateway.Page{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("error fetching messages", "thread_id", threadID, "error", err)
		return gateway.Paged[*gateway.Message]{}, apperr.Upstream("Failed to fetch messages", err)
	}
	if messages == nil {
		messages = []*gateway.Message{}
	}
	return gateway.Paged[*gateway.Message]{Data: messages, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateMessage changes a message's content and/or metadata.
func (s *Service) UpdateMessage(ctx context.Context, id uuid.UUID, patch gateway.MessagePatch) (*gateway.Message, error) {
	message, err := s.store.UpdateMessage(ctx, id, patch)
	if err != nil {
		if gateway.IsNoRows(err) {
			return nil, apperr.NotFound("Message with ID %s not found", id)
		}
		s.logger.Error("error updating message", "message_id", id, "error", err)
		return nil, apperr.Upstream("Failed to update message", err)
	}
	s.logger.Info("updated message", "message_id", id)
	return message, nil
}

// DeleteMessage removes a message. Deleting a missing message succeeds.
func (s *Service) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		s.logger.Error("error deleting message", "message_id", id, "error", err)
		return apperr.Upstream("Failed to delete message", err)
	}
	s.logger.Info("deleted message", "message_id", id)
	return nil
}

func (s *Service) touch(ctx context.Context, thread *gateway.Thread) {
	if err := s.store.TouchThread(ctx, thread); err != nil {
		s.logger.Warn("failed to bump thread activity", "thread_id", thread.ID, "error", err)
	}
}

func notNilUUID(value any) error {
	if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}

func roleValues() []any {
	roles := gateway.Roles()
	out := make([]any, len(roles))
	for i, r := range roles {
		out[i] = r
	}
	return out
}
