// Package ws exposes the socket engine to UI and macro clients over a
// websocket: a HELLO/WELCOME handshake, then one RESULT per OP.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socketcraft.ai/internal/item"
	"socketcraft.ai/internal/protocol"
	"socketcraft.ai/internal/sockets"
)

type Server struct {
	engine    *sockets.Engine
	namespace string
	log       *zap.Logger

	upgrader websocket.Upgrader
	locks    hostLocks
}

func NewServer(e *sockets.Engine, namespace string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:    e,
		namespace: namespace,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		locks: hostLocks{m: map[string]*hostLock{}},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		user, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("user", user.ID))
		log.Info("client connected", zap.String("role", user.Role.String()))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan protocol.ResultMsg, 16)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case res := <-out:
					if err := writeJSON(conn, res); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.handle(ctx, user, msg)
			select {
			case out <- res:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-writerDone
		log.Info("client disconnected")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sockets.User, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return sockets.User{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return sockets.User{}, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return sockets.User{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return sockets.User{}, false
	}
	user := sockets.User{ID: strings.TrimSpace(hello.UserID), Role: sockets.RolePlayer}
	if user.ID == "" {
		closeWith(conn, "missing user_id")
		return sockets.User{}, false
	}
	if hello.Role != "" {
		role, err := sockets.ParseRole(hello.Role)
		if err != nil {
			closeWith(conn, "bad role")
			return sockets.User{}, false
		}
		user.Role = role
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		UserID:          user.ID,
		Role:            user.Role.String(),
		Namespace:       s.namespace,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return sockets.User{}, false
	}
	return user, true
}

// handle runs one OP and builds its RESULT. Operations on the same host item
// are serialized across connections.
func (s *Server) handle(ctx context.Context, user sockets.User, msg []byte) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ProtocolVersion: protocol.Version}

	var op protocol.OpMsg
	if err := json.Unmarshal(msg, &op); err != nil || op.Type != protocol.TypeOp {
		return fail(res, protocol.ErrProtoBadRequest, "expected OP")
	}
	res.ID = op.ID
	if op.ProtocolVersion != protocol.Version {
		return fail(res, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	host := strings.TrimSpace(op.ItemUUID)
	if host == "" {
		return fail(res, protocol.ErrBadRequest, "missing item_uuid")
	}
	needsIndex := op.Op == protocol.OpAddGem || op.Op == protocol.OpRemoveGem || op.Op == protocol.OpRemoveSlot
	if needsIndex && op.Index == nil {
		return fail(res, protocol.ErrBadRequest, "missing index")
	}

	unlock := s.locks.lock(host)
	defer unlock()

	var err error
	switch op.Op {
	case protocol.OpAddGem:
		if len(op.Source) == 0 {
			return fail(res, protocol.ErrBadRequest, "missing source")
		}
		_, err = s.engine.AddGem(ctx, host, *op.Index, sourceOf(op.Source))
		res.Index = op.Index
	case protocol.OpRemoveGem:
		var returned *item.Item
		returned, err = s.engine.RemoveGem(ctx, host, *op.Index)
		if returned != nil {
			res.Returned = returned.UUID()
		}
		res.Index = op.Index
	case protocol.OpAddSlot:
		var idx int
		idx, err = s.engine.AddSlot(ctx, user, host)
		if err == nil {
			res.Index = &idx
		}
	case protocol.OpRemoveSlot:
		err = s.engine.RemoveSlot(ctx, user, host, *op.Index)
		res.Index = op.Index
	case protocol.OpListSlots:
	default:
		return fail(res, protocol.ErrBadRequest, "unknown op "+op.Op)
	}
	if err != nil {
		s.log.Debug("op failed", zap.String("op", op.Op), zap.String("host", host), zap.Error(err))
		return fail(res, codeFor(err), err.Error())
	}

	list, err := s.engine.ListSlots(ctx, host, sockets.QueryOptions{IncludeSnapshot: op.IncludeSnapshot})
	if err != nil {
		return fail(res, codeFor(err), err.Error())
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fail(res, protocol.ErrInternal, err.Error())
	}
	res.OK = true
	res.Slots = raw
	return res
}

// sourceOf treats a JSON string as a uuid reference and anything else as a
// drag payload.
func sourceOf(raw json.RawMessage) sockets.Source {
	var ref string
	if err := json.Unmarshal(raw, &ref); err == nil {
		return sockets.FromUUID(ref)
	}
	return sockets.FromDragPayload(raw)
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, sockets.ErrInvalidIndex):
		return protocol.ErrInvalidIndex
	case errors.Is(err, sockets.ErrUnresolvedSource):
		return protocol.ErrUnresolvedSource
	case errors.Is(err, sockets.ErrWrongKind):
		return protocol.ErrWrongKind
	case errors.Is(err, sockets.ErrUnauthorized):
		return protocol.ErrNoPermission
	case errors.Is(err, sockets.ErrSlotLimit):
		return protocol.ErrSlotLimit
	case errors.Is(err, item.ErrNotFound):
		return protocol.ErrNotFound
	default:
		return protocol.ErrInternal
	}
}

func fail(res protocol.ResultMsg, code, msg string) protocol.ResultMsg {
	res.OK = false
	res.Code = code
	res.Message = msg
	return res
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// hostLocks hands out one mutex per host item uuid.
type hostLocks struct {
	mu sync.Mutex
	m  map[string]*hostLock
}

type hostLock struct {
	mu   sync.Mutex
	refs int
}

func (h *hostLocks) lock(key string) func() {
	h.mu.Lock()
	l := h.m[key]
	if l == nil {
		l = &hostLock{}
		h.m[key] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.m, key)
		}
		h.mu.Unlock()
	}
}
