package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// Memory is an in-process implementation of the three stores over shared
// maps. It mirrors the Mongo implementation's semantics, including the
// cross-store side effects of message writes, and backs the unit tests.
type Memory struct {
	Conversations *MemoryConversationStore
	Messages      *MemoryMessageStore
	Reactions     *MemoryReactionStore
}

func NewMemory() *Memory {
	st := &memoryState{
		convs:     map[string]*models.Conversation{},
		msgs:      map[string]*models.Message{},
		reactions: map[string]*models.Reaction{},
	}
	return &Memory{
		Conversations: &MemoryConversationStore{st: st},
		Messages:      &MemoryMessageStore{st: st},
		Reactions:     &MemoryReactionStore{st: st},
	}
}

type memoryState struct {
	mu        sync.RWMutex
	convs     map[string]*models.Conversation
	msgs      map[string]*models.Message
	reactions map[string]*models.Reaction // keyed messageID + "\x00" + userID
}

func reactionKey(messageID, userID string) string {
	return messageID + "\x00" + userID
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCount = map[string]int64{}
	for k, v := range c.UnreadCount {
		cp.UnreadCount[k] = v
	}
	cp.MutedBy = map[string]bool{}
	for k, v := range c.MutedBy {
		cp.MutedBy[k] = v
	}
	return &cp
}

func cloneMessage(m *models.Message) *models.Message {
	cp := *m
	cp.Media = append([]models.Media(nil), m.Media...)
	cp.LikedBy = append([]string(nil), m.LikedBy...)
	cp.ReadBy = map[string]time.Time{}
	for k, v := range m.ReadBy {
		cp.ReadBy[k] = v
	}
	if cp.EditedAt != nil {
		t := *m.EditedAt
		cp.EditedAt = &t
	}
	return &cp
}

func sortByCreatedAt(ms []*models.Message, ascending bool) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ascending {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[j].CreatedAt.Before(ms[i].CreatedAt)
	})
}

func page(ms []*models.Message, skip, limit int64) []*models.Message {
	if skip >= int64(len(ms)) {
		return []*models.Message{}
	}
	ms = ms[skip:]
	if limit > 0 && limit < int64(len(ms)) {
		ms = ms[:limit]
	}
	return ms
}

// MemoryConversationStore implements ConversationStore.

type MemoryConversationStore struct {
	st *memoryState
}

func (s *MemoryConversationStore) ListForUser(ctx context.Context, userID string, skip, limit int64) ([]*models.Conversation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := []*models.Conversation{}
	for _, c := range s.st.convs {
		if c.Status == models.ConversationDeleted || !c.HasParticipant(userID) {
			continue
		}
		out = append(out, cloneConversation(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[j].LastActivityAt.Before(out[i].LastActivityAt)
	})
	if skip >= int64(len(out)) {
		return []*models.Conversation{}, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryConversationStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return s.st.getConversation(id)
}

func (s *MemoryConversationStore) Create(ctx context.Context, c *models.Conversation) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	cp := cloneConversation(c)
	cp.Status = models.ConversationActive
	s.st.convs[cp.ID] = cp
	return nil
}

func (s *MemoryConversationStore) FindOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, c := range s.st.convs {
		if c.IsGroup || c.Status == models.ConversationDeleted || len(c.Participants) != 2 {
			continue
		}
		if c.HasParticipant(userA) && c.HasParticipant(userB) {
			return cloneConversation(c), false, nil
		}
	}

	now := time.Now().UTC()
	c := &models.Conversation{
		ID:             uuid.NewString(),
		Participants:   []string{userA, userB},
		UnreadCount:    map[string]int64{},
		MutedBy:        map[string]bool{},
		Status:         models.ConversationActive,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	s.st.convs[c.ID] = c
	return cloneConversation(c), true, nil
}

func (s *MemoryConversationStore) SetMuted(ctx context.Context, id, userID string, muted bool) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if c, ok := s.st.convs[id]; ok {
		c.MutedBy[userID] = muted
	}
	return nil
}

func (s *MemoryConversationStore) SetStatus(ctx context.Context, id, status string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if c, ok := s.st.convs[id]; ok {
		c.Status = status
	}
	return nil
}

func (s *MemoryConversationStore) SetUnreadCount(ctx context.Context, id, userID string, count int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if c, ok := s.st.convs[id]; ok {
		c.UnreadCount[userID] = count
	}
	return nil
}

func (s *MemoryConversationStore) PointToMessage(ctx context.Context, id string, m *models.Message) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	s.st.pointTo(id, m)
	return nil
}

// MemoryMessageStore implements MessageStore.

type MemoryMessageStore struct {
	st *memoryState
}

func (s *MemoryMessageStore) ListByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := s.st.collect(func(m *models.Message) bool {
		return m.ConversationID == conversationID
	})
	sortByCreatedAt(out, true)
	return page(out, skip, limit), nil
}

func (s *MemoryMessageStore) GetByID(ctx context.Context, id string) (*models.Message, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	m, ok := s.st.msgs[id]
	if !ok || m.IsDeleted {
		return nil, ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *MemoryMessageStore) Create(ctx context.Context, m *models.Message) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.msgs[m.ID]; ok {
		// retried send; keep the first write
		return nil
	}
	cp := cloneMessage(m)
	if cp.MessageType == "" {
		cp.MessageType = models.MessageText
	}
	s.st.msgs[cp.ID] = cp

	conv, err := s.st.getConversationAny(cp.ConversationID)
	if err != nil {
		return err
	}
	s.st.pointTo(conv.ID, cp)
	for _, p := range conv.Participants {
		if p == cp.SenderID {
			continue
		}
		conv.UnreadCount[p] = s.st.countUnread(p, conv.ID)
	}
	return nil
}

func (s *MemoryMessageStore) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.msgs[id]
	if !ok || m.IsDeleted {
		return nil
	}
	if _, read := m.ReadBy[userID]; !read {
		m.ReadBy[userID] = at
	}
	return nil
}

func (s *MemoryMessageStore) Edit(ctx context.Context, id, content string, at time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.msgs[id]
	if !ok || m.IsDeleted {
		return nil
	}
	m.Content = content
	m.IsEdited = true
	t := at
	m.EditedAt = &t

	if c, ok := s.st.convs[m.ConversationID]; ok && c.LastMessageID == id {
		s.st.pointTo(c.ID, m)
	}
	return nil
}

func (s *MemoryMessageStore) Delete(ctx context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.msgs[id]
	if !ok || m.IsDeleted {
		return nil
	}
	m.IsDeleted = true

	c, ok := s.st.convs[m.ConversationID]
	if !ok || c.LastMessageID != id {
		return nil
	}
	var prev *models.Message
	for _, cand := range s.st.msgs {
		if cand.ConversationID != m.ConversationID || cand.IsDeleted {
			continue
		}
		if !cand.CreatedAt.Before(m.CreatedAt) {
			continue
		}
		if prev == nil || cand.CreatedAt.After(prev.CreatedAt) {
			prev = cand
		}
	}
	if prev != nil {
		s.st.pointTo(c.ID, prev)
	}
	return nil
}

func (s *MemoryMessageStore) ToggleLike(ctx context.Context, id, userID string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	m, ok := s.st.msgs[id]
	if !ok || m.IsDeleted {
		return nil
	}
	for i, u := range m.LikedBy {
		if u == userID {
			m.LikedBy = append(m.LikedBy[:i], m.LikedBy[i+1:]...)
			return nil
		}
	}
	m.LikedBy = append(m.LikedBy, userID)
	return nil
}

func (s *MemoryMessageStore) ToggleSave(ctx context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if m, ok := s.st.msgs[id]; ok && !m.IsDeleted {
		m.IsSaved = !m.IsSaved
	}
	return nil
}

func (s *MemoryMessageStore) SearchByContent(ctx context.Context, conversationID, query string, skip, limit int64) ([]*models.Message, error) {
	if strings.TrimSpace(query) == "" {
		return []*models.Message{}, nil
	}
	q := strings.ToLower(query)

	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := s.st.collect(func(m *models.Message) bool {
		return m.ConversationID == conversationID && strings.Contains(strings.ToLower(m.Content), q)
	})
	sortByCreatedAt(out, false)
	return page(out, skip, limit), nil
}

func (s *MemoryMessageStore) ListMedia(ctx context.Context, conversationID string, skip, limit int64) ([]*models.Message, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := s.st.collect(func(m *models.Message) bool {
		return m.ConversationID == conversationID && m.IsMedia()
	})
	sortByCreatedAt(out, false)
	return page(out, skip, limit), nil
}

func (s *MemoryMessageStore) CountUnread(ctx context.Context, userID, conversationID string) (int64, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return s.st.countUnread(userID, conversationID), nil
}

func (s *MemoryMessageStore) ListUnread(ctx context.Context, conversationID, userID string) ([]*models.Message, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := s.st.collect(func(m *models.Message) bool {
		return m.ConversationID == conversationID && m.SenderID != userID && !m.ReadByUser(userID)
	})
	sortByCreatedAt(out, true)
	return out, nil
}

// MemoryReactionStore implements ReactionStore.

type MemoryReactionStore struct {
	st *memoryState
}

func (s *MemoryReactionStore) ListByMessage(ctx context.Context, messageID string) ([]*models.Reaction, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	out := []*models.Reaction{}
	for _, r := range s.st.reactions {
		if r.MessageID == messageID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryReactionStore) GetUserReaction(ctx context.Context, messageID, userID string) (*models.Reaction, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	r, ok := s.st.reactions[reactionKey(messageID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryReactionStore) Add(ctx context.Context, r *models.Reaction) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	key := reactionKey(r.MessageID, r.UserID)
	if existing, ok := s.st.reactions[key]; ok {
		existing.Type = r.Type
		return nil
	}
	cp := *r
	s.st.reactions[key] = &cp
	return nil
}

func (s *MemoryReactionStore) Update(ctx context.Context, messageID, userID, newType string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if r, ok := s.st.reactions[reactionKey(messageID, userID)]; ok {
		r.Type = newType
	}
	return nil
}

func (s *MemoryReactionStore) Remove(ctx context.Context, messageID, userID string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	delete(s.st.reactions, reactionKey(messageID, userID))
	return nil
}

// shared helpers; callers hold st.mu

func (st *memoryState) getConversation(id string) (*models.Conversation, error) {
	c, ok := st.convs[id]
	if !ok || c.Status == models.ConversationDeleted {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (st *memoryState) getConversationAny(id string) (*models.Conversation, error) {
	c, ok := st.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (st *memoryState) pointTo(conversationID string, m *models.Message) {
	c, ok := st.convs[conversationID]
	if !ok {
		return
	}
	c.LastMessageID = m.ID
	c.LastMessagePreview = messagePreview(m.Content)
	c.LastMessageSenderID = m.SenderID
	c.LastActivityAt = m.CreatedAt
}

func (st *memoryState) countUnread(userID, conversationID string) int64 {
	var n int64
	for _, m := range st.msgs {
		if m.IsDeleted || m.SenderID == userID || m.ReadByUser(userID) {
			continue
		}
		if conversationID != "" {
			if m.ConversationID == conversationID {
				n++
			}
			continue
		}
		if c, ok := st.convs[m.ConversationID]; ok &&
			c.Status != models.ConversationDeleted && c.HasParticipant(userID) {
			n++
		}
	}
	return n
}

func (st *memoryState) collect(keep func(*models.Message) bool) []*models.Message {
	out := []*models.Message{}
	for _, m := range st.msgs {
		if m.IsDeleted || !keep(m) {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	return out
}
