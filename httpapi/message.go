package httpapi

import (
	"net/http"

	"github.com/CalHacks12USF/fregister-backend/conversation"
	"github.com/CalHacks12USF/fregister-backend/gateway"
)

type exchangeEnvelope struct {
	Success bool                  `json:"success"`
	Data    conversation.Exchange `json:"data"`
	Error   string                `json:"error,omitempty"`
}

type updateMessageRequest struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var input conversation.CreateThreadInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, s.logger, err)
		return
	}

	created, err := s.services.Conversation.CreateThread(r.Context(), input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: created})
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, DefaultThreadLimit, MaxThreadLimit)
	page, err := s.services.Conversation.GetThreads(r.Context(), r.URL.Query().Get("user_id"), limit, offset)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Success: true,
		Data:    page.Data,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "threadId", "thread ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	thread, err := s.services.Conversation.GetThread(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: thread})
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "threadId", "thread ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if err := s.services.Conversation.DeleteThread(r.Context(), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Thread deleted successfully"})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "threadId", "thread ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	limit, offset := pagination(r, DefaultMessageLimit, MaxMessageLimit)
	page, err := s.services.Conversation.GetMessagesByThread(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Success: true,
		Data:    page.Data,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	var input conversation.StartInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, s.logger, err)
		return
	}

	started, err := s.services.Conversation.StartConversation(r.Context(), input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: started})
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var input conversation.CreateMessageInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, s.logger, err)
		return
	}

	exchange, err := s.services.Conversation.CreateMessage(r.Context(), input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, exchangeEnvelope{Success: true, Data: exchange, Error: exchange.Error})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "messageId", "message ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	message, err := s.services.Conversation.GetMessage(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: message})
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "messageId", "message ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req updateMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	message, err := s.services.Conversation.UpdateMessage(r.Context(), id, gateway.MessagePatch{
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: message})
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "messageId", "message ID")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if err := s.services.Conversation.DeleteMessage(r.Context(), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Message deleted successfully"})
}
