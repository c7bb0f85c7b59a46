package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/auth"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/metrics"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/models"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/presence"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/readers"
	"github.com/Harishreddyyarramada/novawrite-realtime/internal/typing"
)

const readWait = 60 * time.Second

// UserStore is the slice of the account service the realtime core touches.
type UserStore interface {
	SetLastSeen(ctx context.Context, userID string, at time.Time) error
}

// PostChecker validates join targets for user-authored posts. Curated
// ("featured") posts are accepted by id alone.
type PostChecker interface {
	Exists(ctx context.Context, postID string) (bool, error)
}

type Options struct {
	JWTSecret      string
	TypingExpiry   time.Duration
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	MaxMessageSize int64
}

// Server owns the socket lifecycle: handshake auth, the per-connection event
// loop, and all in-memory presence state.
type Server struct {
	opts     Options
	registry *presence.Registry
	hub      *Hub
	typing   *typing.Coordinator
	readers  *readers.Counter
	users    UserStore
	posts    PostChecker
	log      *zap.SugaredLogger
}

func NewServer(opts Options, users UserStore, posts PostChecker, log *zap.SugaredLogger) *Server {
	s := &Server{
		opts:     opts,
		registry: presence.NewRegistry(),
		hub:      NewHub(),
		readers:  readers.NewCounter(),
		users:    users,
		posts:    posts,
		log:      log,
	}
	s.typing = typing.NewCoordinator(opts.TypingExpiry, s.onTypingExpired)
	return s
}

func (s *Server) Registry() *presence.Registry { return s.registry }
func (s *Server) Hub() *Hub                    { return s.hub }

// HandleWS is mounted behind the fiber websocket upgrade. Unauthenticated
// connections are refused before any registry state exists.
func (s *Server) HandleWS() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			if t, err := auth.ParseBearerToken(conn.Headers("Authorization")); err == nil {
				token = t
			}
		}
		if token == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"authentication required"}`))
			_ = conn.Close()
			return
		}
		claims, err := auth.ParseAndValidateToken(s.opts.JWTSecret, token)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid socket token"}`))
			_ = conn.Close()
			return
		}

		client := NewClient(conn, uuid.NewString(), claims.UserID, claims.Email, s.opts.PingInterval, s.opts.WriteDeadline, s.log)

		first := s.registry.Admit(client.UserID, client.ID)
		s.hub.Register(client)
		metrics.Connections.Inc()
		if first {
			metrics.OnlineUsers.Inc()
			s.emitPresence(client.UserID, "online", nil)
		}
		s.log.Infow("user connected", "user", client.UserID, "conn", client.ID)

		go client.WritePump()
		s.readLoop(client)
		s.cleanup(client)
	}
}

func (s *Server) readLoop(c *Client) {
	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.dispatch(c, env)
	}
}

func (s *Server) dispatch(c *Client, env Envelope) {
	switch env.Type {
	case CmdConversationJoin:
		var ref ConversationRef
		if json.Unmarshal(env.Payload, &ref) != nil || ref.ConversationID == "" {
			return
		}
		s.hub.Join(ConversationRoom(ref.ConversationID), c.ID)

	case CmdConversationLeave:
		var ref ConversationRef
		if json.Unmarshal(env.Payload, &ref) != nil || ref.ConversationID == "" {
			return
		}
		s.hub.Leave(ConversationRoom(ref.ConversationID), c.ID)

	case CmdPostJoin:
		var ref PostRef
		if json.Unmarshal(env.Payload, &ref) != nil || ref.PostType == "" || ref.PostID == "" {
			return
		}
		if !s.validatePostTarget(ref) {
			return
		}
		room := PostRoom(ref.PostType, ref.PostID)
		s.hub.Join(room, c.ID)
		count := s.readers.Join(readers.Key{ContentType: ref.PostType, ContentID: ref.PostID}, c.UserID, c.ID)
		s.hub.Broadcast(room, EventReadersCount, ReadersCountPayload{PostType: ref.PostType, PostID: ref.PostID, Readers: count})

	case CmdPostLeave:
		var ref PostRef
		if json.Unmarshal(env.Payload, &ref) != nil || ref.PostType == "" || ref.PostID == "" {
			return
		}
		room := PostRoom(ref.PostType, ref.PostID)
		s.hub.Leave(room, c.ID)
		count := s.readers.Leave(readers.Key{ContentType: ref.PostType, ContentID: ref.PostID}, c.UserID, c.ID)
		s.hub.Broadcast(room, EventReadersCount, ReadersCountPayload{PostType: ref.PostType, PostID: ref.PostID, Readers: count})

	case CmdTyping:
		var p TypingPayload
		if json.Unmarshal(env.Payload, &p) != nil || p.ConversationID == "" {
			return
		}
		// repeated keystrokes while already typing broadcast nothing
		if s.typing.Start(p.ConversationID, c.UserID, p.Username) {
			s.hub.BroadcastExcept(ConversationRoom(p.ConversationID), c.ID, EventTyping,
				TypingPayload{ConversationID: p.ConversationID, UserID: c.UserID, Username: p.Username})
		}

	case CmdStopTyping:
		var p TypingPayload
		if json.Unmarshal(env.Payload, &p) != nil || p.ConversationID == "" {
			return
		}
		if s.typing.Stop(p.ConversationID, c.UserID) {
			s.hub.BroadcastExcept(ConversationRoom(p.ConversationID), c.ID, EventStopTyping,
				TypingPayload{ConversationID: p.ConversationID, UserID: c.UserID})
		}

	default:
		s.log.Debugw("unknown ws command", "type", env.Type, "user", c.UserID)
	}
}

func (s *Server) validatePostTarget(ref PostRef) bool {
	switch ref.PostType {
	case "featured":
		return true
	case "user":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ok, err := s.posts.Exists(ctx, ref.PostID)
		if err != nil {
			s.log.Warnw("post existence check failed", "post", ref.PostID, "err", err)
			return false
		}
		return ok
	default:
		return false
	}
}

// cleanup runs synchronously before the connection is considered closed:
// reader membership, room membership, then registry dismissal.
func (s *Server) cleanup(c *Client) {
	for _, cc := range s.readers.DropConnection(c.UserID, c.ID) {
		s.hub.Broadcast(PostRoom(cc.Key.ContentType, cc.Key.ContentID), EventReadersCount,
			ReadersCountPayload{PostType: cc.Key.ContentType, PostID: cc.Key.ContentID, Readers: cc.Readers})
	}
	s.hub.Unregister(c)
	c.Close()
	metrics.Connections.Dec()

	if s.registry.Dismiss(c.UserID, c.ID) {
		metrics.OnlineUsers.Dec()
		now := time.Now().UTC()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.users.SetLastSeen(ctx, c.UserID, now); err != nil {
			s.log.Warnw("last seen write failed", "user", c.UserID, "err", err)
		}
		cancel()
		s.emitPresence(c.UserID, "offline", &now)
	}
	s.log.Infow("user disconnected", "user", c.UserID, "conn", c.ID)
}

func (s *Server) emitPresence(userID, status string, lastSeen *time.Time) {
	s.hub.BroadcastAll(EventPresenceUpdate, PresencePayload{UserID: userID, Status: status, LastSeenAt: lastSeen})
}

func (s *Server) onTypingExpired(conversationID, userID string) {
	s.hub.Broadcast(ConversationRoom(conversationID), EventStopTyping,
		TypingPayload{ConversationID: conversationID, UserID: userID})
}

// MessageCreated fans a freshly persisted message out: the full payload to the
// conversation room, a lightweight notice to each participant's user room, and
// a stop-typing for the sender since sending ends composition.
func (s *Server) MessageCreated(conv *models.Conversation, msg *models.Message) {
	convID := conv.ID.Hex()
	s.hub.Broadcast(ConversationRoom(convID), EventNewMessage, msg)
	for _, participant := range conv.Participants {
		s.hub.Broadcast(UserRoom(participant), EventConversationUpdated, ConversationUpdatedPayload{
			ConversationID:  convID,
			LastMessage:     msg,
			LastMessageTime: conv.LastMessageTime,
		})
	}
	if s.typing.Stop(convID, msg.SenderID) {
		s.hub.Broadcast(ConversationRoom(convID), EventStopTyping,
			TypingPayload{ConversationID: convID, UserID: msg.SenderID})
	}
}

// IsOnline and OnlineUserIDs expose presence for conversation enrichment.
func (s *Server) IsOnline(userID string) bool { return s.registry.IsOnline(userID) }

func (s *Server) OnlineUserIDs() map[string]struct{} { return s.registry.OnlineUserIDs() }
