package websocket

import "encoding/json"

// ─── Messages (Client → Server) ─────────────────────────────────────

type MessageType string

const (
	TypeJoinExam   MessageType = "join_exam"
	TypeLeaveExam  MessageType = "leave_exam"
	TypeExamUpdate MessageType = "exam_update"
	TypeTimerSync  MessageType = "timer_sync"
	TypePing       MessageType = "ping"
)

// InboundMessage is every client message; Type selects which fields are read.
type InboundMessage struct {
	Type      MessageType     `json:"type"`
	ExamID    string          `json:"exam_id"`
	Data      json.RawMessage `json:"data"`
	TimerData json.RawMessage `json:"timer_data"`
}

// ─── Messages (Server → Client) ─────────────────────────────────────

const (
	TypeExamJoined  MessageType = "exam_joined"
	TypeExamLeft    MessageType = "exam_left"
	TypeExamUpdated MessageType = "exam_updated"
	TypeTimerUpdate MessageType = "timer_update"
	TypePong        MessageType = "pong"
	TypeError       MessageType = "error"
)

// OutboundMessage is every server message.
type OutboundMessage struct {
	Type      MessageType     `json:"type"`
	ExamID    string          `json:"exam_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	TimerData json.RawMessage `json:"timer_data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// present reports whether a raw field carries a non-empty value. null, false, 0, "",
// [] and {} count as absent.
func present(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
