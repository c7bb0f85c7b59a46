package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
)

// --- in-memory fakes for the persistence ports ---

type fakeConvStore struct {
	mu     sync.Mutex
	byPair map[string]*models.Conversation
	byID   map[primitive.ObjectID]*models.Conversation
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{
		byPair: make(map[string]*models.Conversation),
		byID:   make(map[primitive.ObjectID]*models.Conversation),
	}
}

func (f *fakeConvStore) GetOrCreate(_ context.Context, userA, userB string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair := models.PairKey(userA, userB)
	if c, ok := f.byPair[pair]; ok {
		return c, nil
	}
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []string{userA, userB},
		PairKey:      pair,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.byPair[pair] = c
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeConvStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (f *fakeConvStore) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.byID {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out, nil
}

func (f *fakeConvStore) SetLastMessage(_ context.Context, convID, msgID primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[convID]
	if !ok {
		return ErrNotFound
	}
	c.LastMessageID = msgID
	c.LastMessageTime = at
	c.UpdatedAt = at
	return nil
}

func (f *fakeConvStore) Delete(_ context.Context, convID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[convID]
	if !ok {
		return ErrNotFound
	}
	delete(f.byPair, c.PairKey)
	delete(f.byID, convID)
	return nil
}

type fakeMsgStore struct {
	mu   sync.Mutex
	seq  int
	msgs []*models.Message
}

func (f *fakeMsgStore) Insert(_ context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = primitive.NewObjectID()
	// distinct non-decreasing timestamps, insertion order preserved
	m.CreatedAt = time.Unix(1700000000+int64(f.seq), 0).UTC()
	f.seq++
	f.msgs = append(f.msgs, m)
	return m, nil
}

func (f *fakeMsgStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeMsgStore) ListByConversation(_ context.Context, convID primitive.ObjectID) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, m := range f.msgs {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMsgStore) MarkRead(_ context.Context, convID primitive.ObjectID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if m.ConversationID == convID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeMsgStore) DeleteByConversation(_ context.Context, convID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.msgs[:0]
	for _, m := range f.msgs {
		if m.ConversationID != convID {
			kept = append(kept, m)
		}
	}
	f.msgs = kept
	return nil
}

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) GetByID(_ context.Context, userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

func (f *fakeUserStore) GetManyByIDs(_ context.Context, userIDs []string) ([]*models.User, error) {
	out := make([]*models.User, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakePresence struct{ online map[string]struct{} }

func (f *fakePresence) IsOnline(userID string) bool {
	_, ok := f.online[userID]
	return ok
}
func (f *fakePresence) OnlineUserIDs() map[string]struct{} { return f.online }

type recordingNotifier struct {
	mu    sync.Mutex
	calls []*models.Message
}

func (r *recordingNotifier) MessageCreated(_ *models.Conversation, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, msg)
}

type recordingPublisher struct {
	payloads []any
	err      error
}

func (r *recordingPublisher) PublishMessageSent(_ context.Context, payload any) error {
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

// --- fixture ---

type fixture struct {
	svc      *Service
	convs    *fakeConvStore
	msgs     *fakeMsgStore
	users    *fakeUserStore
	presence *fakePresence
	notifier *recordingNotifier
	events   *recordingPublisher

	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	alice := &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com"}
	bob := &models.User{ID: primitive.NewObjectID(), Username: "bob", Email: "bob@example.com"}

	f := &fixture{
		convs: newFakeConvStore(),
		msgs:  &fakeMsgStore{},
		users: &fakeUserStore{users: map[string]*models.User{
			alice.ID.Hex(): alice,
			bob.ID.Hex():   bob,
		}},
		presence: &fakePresence{online: map[string]struct{}{}},
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
		alice:    alice,
		bob:      bob,
	}
	f.svc = NewService(f.convs, f.msgs, f.users, f.presence, f.notifier, f.events, 4000, zap.NewNop().Sugar())
	return f
}

func (f *fixture) startConv(t *testing.T) *ConversationView {
	t.Helper()
	view, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), f.bob.ID.Hex())
	require.NoError(t, err)
	return view
}

// --- StartConversation ---

func TestStartConversation_RejectsSelfChat(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), f.alice.ID.Hex())
	require.ErrorIs(t, err, ErrValidation)
}

func TestStartConversation_RejectsMalformedID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), "not-an-id")
	require.ErrorIs(t, err, ErrValidation)
}

func TestStartConversation_RejectsUnknownTarget(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestStartConversation_IsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	first := f.startConv(t)

	// B starting the chat from the other side lands on the same conversation
	second, err := f.svc.StartConversation(context.Background(), f.bob.ID.Hex(), f.alice.ID.Hex())
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestStartConversation_ConcurrentCallsConverge(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	const callers = 8
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		a, b := f.alice, f.bob
		if i%2 == 1 {
			a, b = b, a
		}
		go func(from, to string) {
			defer wg.Done()
			view, err := f.svc.StartConversation(context.Background(), from, to)
			if assert.NoError(t, err) {
				ids <- view.ID
			}
		}(a.ID.Hex(), b.ID.Hex())
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	req.Len(seen, 1)
	req.Len(f.convs.byID, 1)
}

func TestStartConversation_EnrichesOtherUserPresence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.presence.online[f.bob.ID.Hex()] = struct{}{}

	view := f.startConv(t)
	req.NotNil(view.OtherUser)
	req.Equal(f.bob.ID.Hex(), view.OtherUser.ID)
	req.True(view.OtherUser.IsOnline)
	req.Len(view.Participants, 2)
}

// --- SendMessage ---

func TestSendMessage_ContentValidation(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)

	cases := []struct {
		name    string
		in      SendMessageInput
		wantErr bool
	}{
		{"plain text", SendMessageInput{Text: "hi", MessageType: "text"}, false},
		{"whitespace only text", SendMessageInput{Text: "   ", MessageType: "text"}, true},
		{"empty everything", SendMessageInput{MessageType: "text"}, true},
		{"image with media", SendMessageInput{MessageType: "image", MediaUrl: "https://cdn/img.png", MediaPublicID: "img"}, false},
		{"image without media", SendMessageInput{MessageType: "image"}, true},
		{"link with url", SendMessageInput{MessageType: "link", LinkUrl: "https://example.com"}, false},
		{"link without url", SendMessageInput{MessageType: "link"}, true},
		{"unknown kind falls back to text", SendMessageInput{Text: "hey", MessageType: "sticker"}, false},
		{"unknown kind without text", SendMessageInput{MessageType: "sticker"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.ConversationID = conv.ID
			msg, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				require.Nil(t, msg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, msg)
			}
		})
	}
}

func TestSendMessage_RejectsOversizedText(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)

	long := make([]byte, 4001)
	for i := range long {
		long[i] = 'a'
	}
	_, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
		ConversationID: conv.ID,
		Text:           string(long),
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, f.msgs.msgs)
}

func TestSendMessage_UnknownKindNormalizedToText(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)

	msg, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
		ConversationID: conv.ID,
		Text:           "hey",
		MessageType:    "sticker",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeText, msg.MessageType)
}

func TestSendMessage_NonParticipantGetsNotFound(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)

	eve := primitive.NewObjectID().Hex()
	_, err := f.svc.SendMessage(context.Background(), eve, SendMessageInput{
		ConversationID: conv.ID,
		Text:           "let me in",
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, f.msgs.msgs)
}

func TestSendMessage_UpdatesLastMessageAndNotifies(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conv := f.startConv(t)

	msg, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
		ConversationID: conv.ID,
		Text:           "hi",
	})
	req.NoError(err)

	oid, _ := primitive.ObjectIDFromHex(conv.ID)
	stored, err := f.convs.GetByID(context.Background(), oid)
	req.NoError(err)
	req.Equal(msg.ID, stored.LastMessageID)
	req.False(stored.LastMessageTime.IsZero())

	req.Len(f.notifier.calls, 1)
	req.Equal(msg.ID, f.notifier.calls[0].ID)
	req.Len(f.events.payloads, 1)
}

func TestSendMessage_PublisherFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	conv := f.startConv(t)

	msg, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
		ConversationID: conv.ID,
		Text:           "still delivered",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Len(t, f.notifier.calls, 1)
}

// --- ListMessages / MarkRead / Delete ---

func TestListMessages_AscendingCreationOrder(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conv := f.startConv(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
			ConversationID: conv.ID,
			Text:           text,
		})
		req.NoError(err)
	}

	msgs, err := f.svc.ListMessages(context.Background(), conv.ID, f.bob.ID.Hex())
	req.NoError(err)
	req.Len(msgs, 3)
	for i := 1; i < len(msgs); i++ {
		req.False(msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
	req.Equal("one", msgs[0].Text)
}

func TestListMessages_NonParticipantGetsNotFound(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)
	_, err := f.svc.ListMessages(context.Background(), conv.ID, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkRead_IsIdempotentAndScopedToOthers(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conv := f.startConv(t)

	_, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{ConversationID: conv.ID, Text: "from alice"})
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), f.bob.ID.Hex(), SendMessageInput{ConversationID: conv.ID, Text: "from bob"})
	req.NoError(err)

	req.NoError(f.svc.MarkRead(context.Background(), conv.ID, f.bob.ID.Hex()))

	snapshot := func() []bool {
		msgs, err := f.svc.ListMessages(context.Background(), conv.ID, f.bob.ID.Hex())
		req.NoError(err)
		out := make([]bool, len(msgs))
		for i, m := range msgs {
			out[i] = m.IsRead
		}
		return out
	}

	first := snapshot()
	req.Equal([]bool{true, false}, first) // alice's message read, bob's own untouched

	req.NoError(f.svc.MarkRead(context.Background(), conv.ID, f.bob.ID.Hex()))
	req.Equal(first, snapshot())
}

func TestDeleteConversation_CascadesToMessages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	conv := f.startConv(t)

	_, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{ConversationID: conv.ID, Text: "doomed"})
	req.NoError(err)

	req.NoError(f.svc.DeleteConversation(context.Background(), conv.ID, f.alice.ID.Hex()))
	req.Empty(f.msgs.msgs)

	_, err = f.svc.ListMessages(context.Background(), conv.ID, f.alice.ID.Hex())
	req.ErrorIs(err, ErrNotFound)
}

func TestDeleteConversation_NonParticipantGetsNotFound(t *testing.T) {
	f := newFixture(t)
	conv := f.startConv(t)
	err := f.svc.DeleteConversation(context.Background(), conv.ID, primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, f.convs.byID, 1)
}

// --- end-to-end happy path over the service layer ---

func TestFirstContactFlow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	view, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), f.bob.ID.Hex())
	req.NoError(err)
	req.Len(view.Participants, 2)

	msg, err := f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{
		ConversationID: view.ID,
		Text:           "hi",
	})
	req.NoError(err)
	req.Equal(models.MessageTypeText, msg.MessageType)

	// bob's conversation list has the message as its preview
	list, err := f.svc.ListConversations(context.Background(), f.bob.ID.Hex())
	req.NoError(err)
	req.Len(list, 1)
	req.NotNil(list[0].LastMessage)
	req.Equal("hi", list[0].LastMessage.Text)

	msgs, err := f.svc.ListMessages(context.Background(), view.ID, f.bob.ID.Hex())
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("hi", msgs[0].Text)
	req.False(msgs[0].IsRead)

	req.NoError(f.svc.MarkRead(context.Background(), view.ID, f.bob.ID.Hex()))
	msgs, err = f.svc.ListMessages(context.Background(), view.ID, f.bob.ID.Hex())
	req.NoError(err)
	req.True(msgs[0].IsRead)
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	carol := &models.User{ID: primitive.NewObjectID(), Username: "carol", Email: "carol@example.com"}
	f.users.users[carol.ID.Hex()] = carol

	withBob := f.startConv(t)
	withCarol, err := f.svc.StartConversation(context.Background(), f.alice.ID.Hex(), carol.ID.Hex())
	req.NoError(err)

	_, err = f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{ConversationID: withBob.ID, Text: "old"})
	req.NoError(err)
	_, err = f.svc.SendMessage(context.Background(), f.alice.ID.Hex(), SendMessageInput{ConversationID: withCarol.ID, Text: "new"})
	req.NoError(err)

	list, err := f.svc.ListConversations(context.Background(), f.alice.ID.Hex())
	req.NoError(err)
	req.Len(list, 2)
	req.Equal(withCarol.ID, list[0].ID)
	req.Equal(withBob.ID, list[1].ID)
}
