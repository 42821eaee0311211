// Package websocket holds the realtime Connection Registry and its wire format.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/rs/zerolog"
)

// ErrUnknownConnection is returned for operations on a connection that is not registered.
var ErrUnknownConnection = errors.New("unknown connection")

// RoomAuthorizer decides room access. Joining needs read access to the exam; relaying
// exam updates and timer syncs needs modify access.
type RoomAuthorizer interface {
	AuthorizeRoom(ctx context.Context, subj policy.Subject, examID string) error
	AuthorizeRoomUpdate(ctx context.Context, subj policy.Subject, examID string) error
}

type connection struct {
	id    string
	subj  policy.Subject
	ch    Channel
	rooms map[string]struct{}
}

// Stats describes the registry's current state.
type Stats struct {
	TotalConnections   int            `json:"total_connections"`
	UniqueUsers        int            `json:"unique_users"`
	ExamRooms          int            `json:"exam_rooms"`
	ConnectionsPerRoom map[string]int `json:"connections_per_room"`
}

// Registry tracks live connections, their users and the exam rooms they joined.
// A connection whose send fails is removed.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
	users map[string]map[string]struct{}
	rooms map[string]map[string]struct{}

	auth    RoomAuthorizer
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(auth RoomAuthorizer, m *metrics.Metrics, log zerolog.Logger) *Registry {
	return &Registry{
		conns:   make(map[string]*connection),
		users:   make(map[string]map[string]struct{}),
		rooms:   make(map[string]map[string]struct{}),
		auth:    auth,
		metrics: m,
		log:     log.With().Str("component", "ws_registry").Logger(),
	}
}

// Connect registers ch for subj and returns its connection id. A user may hold many
// connections.
func (r *Registry) Connect(ch Channel, subj policy.Subject) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.conns[id] = &connection{id: id, subj: subj, ch: ch, rooms: make(map[string]struct{})}
	set, ok := r.users[subj.UserID]
	if !ok {
		set = make(map[string]struct{})
		r.users[subj.UserID] = set
	}
	set[id] = struct{}{}
	r.updateGauges()
	r.mu.Unlock()

	r.log.Info().Str("conn_id", id).Str("user_id", subj.UserID).Msg("Connection registered")
	return id
}

// Disconnect removes a connection from every mapping and closes its channel. It
// reports whether the connection was registered.
func (r *Registry) Disconnect(id string) bool {
	r.mu.Lock()
	c, ok := r.remove(id)
	r.mu.Unlock()
	if !ok {
		return false
	}

	if err := c.ch.Close(); err != nil {
		r.log.Debug().Err(err).Str("conn_id", id).Msg("Close after disconnect")
	}
	r.log.Info().Str("conn_id", id).Str("user_id", c.subj.UserID).Msg("Connection removed")
	return true
}

// remove must be called with mu held.
func (r *Registry) remove(id string) (*connection, bool) {
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)

	if set, ok := r.users[c.subj.UserID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.users, c.subj.UserID)
		}
	}
	for room := range c.rooms {
		r.leave(room, id)
	}
	r.updateGauges()
	return c, true
}

// JoinRoom adds a connection to a room. Joining twice is a no-op.
func (r *Registry) JoinRoom(id, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[id] = struct{}{}
	c.rooms[room] = struct{}{}
	r.updateGauges()
	return nil
}

// LeaveRoom removes a connection from a room. Leaving a room not joined is a no-op.
func (r *Registry) LeaveRoom(id, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	delete(c.rooms, room)
	r.leave(room, id)
	r.updateGauges()
	return nil
}

// leave must be called with mu held. Empty rooms are dropped.
func (r *Registry) leave(room, id string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// SendToUser delivers msg to every connection of userID and returns how many
// deliveries succeeded.
func (r *Registry) SendToUser(userID string, msg []byte) int {
	r.mu.RLock()
	targets := make([]*connection, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		targets = append(targets, r.conns[id])
	}
	r.mu.RUnlock()

	return r.deliver(targets, msg)
}

// BroadcastToRoom delivers msg to every room member whose user is not excludeUser.
func (r *Registry) BroadcastToRoom(room string, msg []byte, excludeUser string) int {
	r.mu.RLock()
	targets := make([]*connection, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		c := r.conns[id]
		if excludeUser != "" && c.subj.UserID == excludeUser {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	return r.deliver(targets, msg)
}

// Broadcast delivers msg to every connection.
func (r *Registry) Broadcast(msg []byte) int {
	r.mu.RLock()
	targets := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	return r.deliver(targets, msg)
}

// deliver sends outside the lock; failed connections are pruned afterwards.
func (r *Registry) deliver(targets []*connection, msg []byte) int {
	sent := 0
	for _, c := range targets {
		if err := c.ch.Send(msg); err != nil {
			r.prune(c, err)
			continue
		}
		sent++
	}
	return sent
}

func (r *Registry) prune(c *connection, cause error) {
	r.log.Warn().Err(cause).Str("conn_id", c.id).Str("user_id", c.subj.UserID).Msg("Send failed, pruning connection")
	if r.Disconnect(c.id) {
		r.metrics.PrunedConnections.Inc()
	}
}

// reply sends v to one connection.
func (r *Registry) reply(c *connection, v OutboundMessage) {
	r.settle(c, WriteTyped(c.ch, v))
}

// settle prunes c after a failed send. Encode failures leave the connection alone.
func (r *Registry) settle(c *connection, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrEncode):
		r.log.Error().Err(err).Str("conn_id", c.id).Msg("Encode reply")
	default:
		r.prune(c, err)
	}
}

// Dispatch handles one raw client message from connection id. Malformed and unknown
// messages are logged and dropped; Dispatch never changes state for them.
func (r *Registry) Dispatch(ctx context.Context, id string, raw []byte) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		r.log.Warn().Str("conn_id", id).Msg("Message from unknown connection")
		return
	}

	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.drop(c, "malformed", err, "")
		return
	}

	switch msg.Type {
	case TypePing:
		r.reply(c, OutboundMessage{Type: TypePong})

	case TypeJoinExam:
		if msg.ExamID == "" {
			r.drop(c, "malformed", nil, msg.Type)
			return
		}
		if err := r.auth.AuthorizeRoom(ctx, c.subj, msg.ExamID); err != nil {
			r.deny(c, msg, err)
			return
		}
		if err := r.JoinRoom(id, msg.ExamID); err != nil {
			return
		}
		r.log.Info().Str("conn_id", id).Str("user_id", c.subj.UserID).Str("exam_id", msg.ExamID).Msg("Joined exam room")
		r.reply(c, OutboundMessage{Type: TypeExamJoined, ExamID: msg.ExamID})

	case TypeLeaveExam:
		if msg.ExamID == "" {
			r.drop(c, "malformed", nil, msg.Type)
			return
		}
		if err := r.LeaveRoom(id, msg.ExamID); err != nil {
			return
		}
		r.reply(c, OutboundMessage{Type: TypeExamLeft, ExamID: msg.ExamID})

	case TypeExamUpdate:
		if msg.ExamID == "" || !present(msg.Data) {
			r.drop(c, "malformed", nil, msg.Type)
			return
		}
		if err := r.auth.AuthorizeRoomUpdate(ctx, c.subj, msg.ExamID); err != nil {
			r.deny(c, msg, err)
			return
		}
		r.relay(msg.ExamID, OutboundMessage{Type: TypeExamUpdated, ExamID: msg.ExamID, Data: msg.Data}, c.subj.UserID)

	case TypeTimerSync:
		if msg.ExamID == "" || !present(msg.TimerData) {
			r.drop(c, "malformed", nil, msg.Type)
			return
		}
		if err := r.auth.AuthorizeRoomUpdate(ctx, c.subj, msg.ExamID); err != nil {
			r.deny(c, msg, err)
			return
		}
		r.relay(msg.ExamID, OutboundMessage{Type: TypeTimerUpdate, ExamID: msg.ExamID, TimerData: msg.TimerData}, c.subj.UserID)

	default:
		r.drop(c, "unknown_type", nil, msg.Type)
	}
}

func (r *Registry) relay(room string, v OutboundMessage, excludeUser string) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.log.Error().Err(err).Msg("Encode room message")
		return
	}
	r.BroadcastToRoom(room, raw, excludeUser)
}

func (r *Registry) drop(c *connection, reason string, err error, typ MessageType) {
	r.metrics.DroppedMessages.WithLabelValues(reason).Inc()
	r.log.Warn().Err(err).Str("conn_id", c.id).Str("type", string(typ)).Str("reason", reason).Msg("Dropped realtime message")
}

func (r *Registry) deny(c *connection, msg InboundMessage, err error) {
	r.metrics.DroppedMessages.WithLabelValues("unauthorized").Inc()
	r.log.Info().Err(err).Str("conn_id", c.id).Str("type", string(msg.Type)).Str("exam_id", msg.ExamID).Msg("Realtime request denied")
	r.settle(c, WriteError(c.ch, msg.ExamID, "exam not available"))
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// UserConnections returns the sorted connection ids of userID.
func (r *Registry) UserConnections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.users[userID])
}

// RoomMembers returns the sorted connection ids in room.
func (r *Registry) RoomMembers(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.rooms[room])
}

// Stats returns connection and room counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perRoom := make(map[string]int, len(r.rooms))
	for room, members := range r.rooms {
		perRoom[room] = len(members)
	}
	return Stats{
		TotalConnections:   len(r.conns),
		UniqueUsers:        len(r.users),
		ExamRooms:          len(r.rooms),
		ConnectionsPerRoom: perRoom,
	}
}

// CloseAll disconnects every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Disconnect(id)
	}
}

// updateGauges must be called with mu held.
func (r *Registry) updateGauges() {
	r.metrics.Connections.Set(float64(len(r.conns)))
	r.metrics.Rooms.Set(float64(len(r.rooms)))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
