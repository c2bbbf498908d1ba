package gateway

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InsertThread stores a new thread. ID and timestamps are assigned when zero.
func (g *Gateway) InsertThread(ctx context.Context, thread *Thread) (*Thread, error) {
	now := time.Now().UTC()
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	if thread.UpdatedAt.IsZero() {
		thread.UpdatedAt = thread.CreatedAt
	}
	return g.threads.Insert(ctx, thread)
}

// FindThread returns the thread with the given id or a NO_ROWS error.
func (g *Gateway) FindThread(ctx context.Context, id uuid.UUID) (*Thread, error) {
	return g.threads.Single(ctx, where("id", id))
}

// ListThreads returns one page of threads, most recently updated first. An empty userID
// lists every thread.
func (g *Gateway) ListThreads(ctx context.Context, userID string, page Page) ([]*Thread, int, error) {
	criteria := []repository.SelectCriteria{orderBy("updated_at DESC")}
	if userID != "" {
		criteria = append(criteria, where("user_id", userID))
	}
	return g.threads.Select(ctx, page, criteria...)
}

// TouchThread bumps updated_at of the thread.
func (g *Gateway) TouchThread(ctx context.Context, thread *Thread) error {
	thread.UpdatedAt = time.Now().UTC()
	_, err := g.threads.Update(ctx, thread, "updated_at")
	return err
}

// DeleteThread removes the thread and its messages in one transaction.
func (g *Gateway) DeleteThread(ctx context.Context, id uuid.UUID) error {
	return g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// sqlite only cascades when foreign keys are enabled on the connection
		if err := g.messages.DeleteTx(ctx, tx, deleteWhere("thread_id", id)); err != nil {
			return err
		}
		return g.threads.DeleteTx(ctx, tx, deleteWhere("id", id))
	})
}

// InsertMessage stores a new message. ID and timestamps are assigned when zero.
func (g *Gateway) InsertMessage(ctx context.Context, message *Message) (*Message, error) {
	now := time.Now().UTC()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	if message.UpdatedAt.IsZero() {
		message.UpdatedAt = message.CreatedAt
	}
	return g.messages.Insert(ctx, message)
}

// FindMessage returns the message with the given id or a NO_ROWS error.
func (g *Gateway) FindMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	return g.messages.Single(ctx, where("id", id))
}

// ListMessages returns one page of the thread's messages in chronological order.
func (g *Gateway) ListMessages(ctx context.Context, threadID uuid.UUID, page Page) ([]*Message, int, error) {
	return g.messages.Select(ctx, page,
		where("thread_id", threadID),
		orderBy("created_at ASC", "id ASC"),
	)
}

// UpdateMessage applies patch to the message and returns the updated row. A missing
// message yields a NO_ROWS error.
func (g *Gateway) UpdateMessage(ctx context.Context, id uuid.UUID, patch MessagePatch) (*Message, error) {
	message, err := g.FindMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if patch.Content != nil {
		message.Content = *patch.Content
		columns = append(columns, "content")
	}
	if patch.Metadata != nil {
		message.Metadata = patch.Metadata
		columns = append(columns, "metadata")
	}
	message.UpdatedAt = time.Now().UTC()

	return g.messages.Update(ctx, message, columns...)
}

// DeleteMessage removes the message. Deleting a missing message is not an error.
func (g *Gateway) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return g.messages.Delete(ctx, deleteWhere("id", id))
}
