package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/service"
	ws "github.com/opsis/opsis-backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type openRooms struct{}

func (openRooms) AuthorizeRoom(_ context.Context, _ policy.Subject, examID string) error {
	if examID == "secret" {
		return policy.ErrNotFound
	}
	return nil
}

func (openRooms) AuthorizeRoomUpdate(context.Context, policy.Subject, string) error {
	return policy.ErrForbidden
}

func startSocketServer(t *testing.T, rate float64, burst int) (*ws.Registry, *metrics.Metrics, string) {
	t.Helper()
	m := metrics.New()
	registry := ws.NewRegistry(openRooms{}, m, nopLog)
	h := NewWSHandler(registry, m, nopLog, nil, rate, burst)

	r := gin.New()
	r.GET("/ws", asUser(student), h.Connect)
	r.GET("/ws/stats", h.Stats)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		registry.CloseAll()
		srv.Close()
	})
	return registry, m, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) ws.OutboundMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ws.OutboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func eventually(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSocketJoinAndBroadcast(t *testing.T) {
	registry, m, url := startSocketServer(t, 100, 10)
	conn := dial(t, url)

	conn.WriteJSON(map[string]string{"type": "join_exam", "exam_id": "exam-1"})
	if msg := readOutbound(t, conn); msg.Type != ws.TypeExamJoined || msg.ExamID != "exam-1" {
		t.Fatalf("join reply = %+v", msg)
	}

	out, _ := json.Marshal(ws.OutboundMessage{Type: ws.TypeExamUpdated, ExamID: "exam-1", Data: json.RawMessage(`{"title":"new"}`)})
	if n := registry.BroadcastToRoom("exam-1", out, ""); n != 1 {
		t.Fatalf("delivered to %d connections", n)
	}
	if msg := readOutbound(t, conn); msg.Type != ws.TypeExamUpdated || string(msg.Data) != `{"title":"new"}` {
		t.Fatalf("broadcast = %+v", msg)
	}

	// Unknown types are dropped silently; the pong proves the loop moved past it.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`))
	conn.WriteJSON(map[string]string{"type": "ping"})
	if msg := readOutbound(t, conn); msg.Type != ws.TypePong {
		t.Fatalf("expected pong, got %+v", msg)
	}
	if got := testutil.ToFloat64(m.DroppedMessages.WithLabelValues("unknown_type")); got != 1 {
		t.Errorf("unknown_type drops = %v", got)
	}

	conn.WriteJSON(map[string]any{"type": "exam_update", "exam_id": "exam-1", "data": map[string]string{"a": "b"}})
	if msg := readOutbound(t, conn); msg.Type != ws.TypeError {
		t.Fatalf("student update not denied: %+v", msg)
	}

	conn.WriteJSON(map[string]string{"type": "join_exam", "exam_id": "secret"})
	if msg := readOutbound(t, conn); msg.Type != ws.TypeError {
		t.Fatalf("hidden room join not denied: %+v", msg)
	}
	if members := registry.RoomMembers("secret"); len(members) != 0 {
		t.Errorf("secret room members = %v", members)
	}
}

func TestSocketDisconnectCleansUp(t *testing.T) {
	registry, _, url := startSocketServer(t, 100, 10)
	conn := dial(t, url)

	conn.WriteJSON(map[string]string{"type": "join_exam", "exam_id": "exam-1"})
	readOutbound(t, conn)
	if s := registry.Stats(); s.TotalConnections != 1 || s.ExamRooms != 1 {
		t.Fatalf("stats = %+v", s)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	eventually(t, func() bool {
		s := registry.Stats()
		return s.TotalConnections == 0 && s.ExamRooms == 0
	}, "registry cleanup")
}

func TestSocketRateLimit(t *testing.T) {
	_, m, url := startSocketServer(t, 0.001, 1)
	conn := dial(t, url)

	conn.WriteJSON(map[string]string{"type": "ping"})
	if msg := readOutbound(t, conn); msg.Type != ws.TypePong {
		t.Fatalf("first message = %+v", msg)
	}

	conn.WriteJSON(map[string]string{"type": "ping"})
	eventually(t, func() bool {
		return testutil.ToFloat64(m.DroppedMessages.WithLabelValues("rate_limited")) == 1
	}, "rate limited drop")
}

func TestSocketStats(t *testing.T) {
	registry, _, url := startSocketServer(t, 100, 10)
	dial(t, url)
	eventually(t, func() bool { return registry.Stats().TotalConnections == 1 }, "connection")

	h := NewWSHandler(registry, metrics.New(), nopLog, nil, 1, 1)
	r := gin.New()
	r.GET("/stats", h.Stats)
	w, env := do(t, r, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var s ws.Stats
	json.Unmarshal(env.Data, &s)
	if s.TotalConnections != 1 || s.UniqueUsers != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestBuildUpgraderOrigins(t *testing.T) {
	up := buildUpgrader([]string{"https://opsis.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "https://OPSIS.example")
	if !up.CheckOrigin(req) {
		t.Error("allowed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if up.CheckOrigin(req) {
		t.Error("foreign origin accepted")
	}
	if !buildUpgrader(nil).CheckOrigin(req) {
		t.Error("empty allow list should accept any origin")
	}
}

// ─── NLP ────────────────────────────────────────────────────────────

func nlpRouter() *gin.Engine {
	analysis := service.NewAnalysisService(nlp.NewAnalyzer(), nil, 1, metrics.New(), nopLog)
	h := NewNLPHandler(analysis)
	r := gin.New()
	r.POST("/analyze-text", h.AnalyzeText)
	r.POST("/check-plagiarism", h.CheckPlagiarism)
	r.POST("/grade-essay", h.GradeEssay)
	return r
}

func TestNLPEndpoints(t *testing.T) {
	r := nlpRouter()

	w, env := do(t, r, jsonRequest(http.MethodPost, "/analyze-text", `{"text":"Plants need light. Light drives photosynthesis."}`))
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: %d %s", w.Code, w.Body.String())
	}
	var analysis nlp.TextAnalysis
	json.Unmarshal(env.Data, &analysis)
	if analysis.WordCount != 6 || len(analysis.Keywords) == 0 {
		t.Errorf("analysis = %+v", analysis)
	}

	w, _ = do(t, r, jsonRequest(http.MethodPost, "/analyze-text", `{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text: %d", w.Code)
	}

	text := "Photosynthesis converts light energy into chemical energy."
	body, _ := json.Marshal(model.PlagiarismRequest{Text: text, ReferenceTexts: []string{text}})
	_, env = do(t, r, jsonRequest(http.MethodPost, "/check-plagiarism", string(body)))
	var plag nlp.PlagiarismResult
	json.Unmarshal(env.Data, &plag)
	if plag.RiskLevel != nlp.RiskHigh {
		t.Errorf("plagiarism = %+v", plag)
	}

	_, env = do(t, r, jsonRequest(http.MethodPost, "/grade-essay", `{"essay_text":"Plants use light.","question_text":"Explain photosynthesis"}`))
	var grade nlp.EssayGrade
	json.Unmarshal(env.Data, &grade)
	if grade.MaxScore != nlp.DefaultEssayMaxScore {
		t.Errorf("max score = %v", grade.MaxScore)
	}
}
