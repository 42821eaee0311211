package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/middleware"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/opsis/opsis-backend/internal/speech"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/opsis/opsis-backend/internal/voice"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	os.Exit(m.Run())
}

var (
	student = &model.User{ID: "student-1", Role: model.RoleStudent}
	nopLog  = zerolog.Nop()
)

// asUser stores user in the context the way Authenticate does.
func asUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextKeyUser, user)
		}
		c.Next()
	}
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func do(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ─── Attempts ───────────────────────────────────────────────────────

type stubAttempts struct {
	AttemptUseCases
	attempt *model.Attempt
	created bool
	err     error
	gotSubj policy.Subject
	score   float64
}

func (s *stubAttempts) Start(_ context.Context, subj policy.Subject, examID uuid.UUID) (*model.Attempt, bool, error) {
	s.gotSubj = subj
	return s.attempt, s.created, s.err
}

func (s *stubAttempts) Update(_ context.Context, _ policy.Subject, _ uuid.UUID, _ model.AttemptPatch) (*model.Attempt, error) {
	return s.attempt, s.err
}

func (s *stubAttempts) Grade(_ context.Context, _ policy.Subject, _ uuid.UUID, score float64) (*model.Attempt, error) {
	s.score = score
	return s.attempt, s.err
}

func attemptRouter(stub *stubAttempts, user *model.User) *gin.Engine {
	h := NewAttemptHandler(stub, nopLog)
	r := gin.New()
	r.Use(asUser(user))
	r.POST("/exams/:id/start", h.StartAttempt)
	r.PUT("/attempts/:id", h.UpdateAttempt)
	r.POST("/attempts/:id/grade", h.GradeAttempt)
	return r
}

func TestStartAttemptStatus(t *testing.T) {
	examID := uuid.New()
	path := "/exams/" + examID.String() + "/start"

	tests := []struct {
		name     string
		stub     *stubAttempts
		user     *model.User
		path     string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"created", &stubAttempts{attempt: &model.Attempt{ID: uuid.New()}, created: true}, student, path, http.StatusCreated, ""},
		{"resumed", &stubAttempts{attempt: &model.Attempt{ID: uuid.New()}}, student, path, http.StatusOK, ""},
		{"hidden exam", &stubAttempts{err: policy.ErrNotFound}, student, path, http.StatusNotFound, response.ErrNotFound},
		{"unpublished", &stubAttempts{err: policy.ErrNotPublished}, student, path, http.StatusConflict, response.ErrExamNotPublished},
		{"bad id", &stubAttempts{}, student, "/exams/nope/start", http.StatusBadRequest, response.ErrInvalidID},
		{"anonymous", &stubAttempts{}, nil, path, http.StatusUnauthorized, response.ErrTokenRequired},
		{"unexpected", &stubAttempts{err: errors.New("db down")}, student, path, http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, attemptRouter(tt.stub, tt.user), httptest.NewRequest(http.MethodPost, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr == "" {
				if env.Error != nil {
					t.Fatalf("unexpected error %+v", env.Error)
				}
				return
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Fatalf("error = %+v, want %s", env.Error, tt.wantErr)
			}
		})
	}

	stub := &stubAttempts{attempt: &model.Attempt{}, created: true}
	do(t, attemptRouter(stub, student), httptest.NewRequest(http.MethodPost, path, nil))
	if stub.gotSubj != (policy.Subject{UserID: "student-1", Role: model.RoleStudent}) {
		t.Errorf("subject = %+v", stub.gotSubj)
	}
}

func TestUpdateAttemptErrors(t *testing.T) {
	path := "/attempts/" + uuid.NewString()

	w, env := do(t, attemptRouter(&stubAttempts{}, student), jsonRequest(http.MethodPut, path, `{"status":"graded"}`))
	if w.Code != http.StatusBadRequest || env.Error.Code != response.ErrValidation {
		t.Fatalf("invalid status accepted: %d %s", w.Code, w.Body.String())
	}
	if _, ok := env.Error.Fields["status"]; !ok {
		t.Errorf("fields = %v", env.Error.Fields)
	}

	for err, code := range map[error]response.ErrCode{
		service.ErrTimeOver: response.ErrTimeOver,
		policy.ErrLocked:    response.ErrAttemptLocked,
		policy.ErrForbidden: response.ErrForbidden,
	} {
		w, env := do(t, attemptRouter(&stubAttempts{err: err}, student), jsonRequest(http.MethodPut, path, `{"answers":{"q1":"b"}}`))
		if env.Error == nil || env.Error.Code != code {
			t.Errorf("%v: got %d %s, want %s", err, w.Code, w.Body.String(), code)
		}
	}
}

func TestGradeAttemptRequiresScore(t *testing.T) {
	path := "/attempts/" + uuid.NewString() + "/grade"
	instructor := &model.User{ID: "inst-1", Role: model.RoleInstructor}

	stub := &stubAttempts{attempt: &model.Attempt{}}
	w, _ := do(t, attemptRouter(stub, instructor), jsonRequest(http.MethodPost, path, `{}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing score: status %d", w.Code)
	}

	w, _ = do(t, attemptRouter(stub, instructor), jsonRequest(http.MethodPost, path, `{"score":0}`))
	if w.Code != http.StatusOK || stub.score != 0 {
		t.Fatalf("zero score: status %d, score %v", w.Code, stub.score)
	}

	stub.err = policy.ErrNotSubmitted
	_, env := do(t, attemptRouter(stub, instructor), jsonRequest(http.MethodPost, path, `{"score":7.5}`))
	if env.Error == nil || env.Error.Code != response.ErrAttemptNotSubmitted {
		t.Fatalf("error = %+v", env.Error)
	}
}

// ─── Speech ─────────────────────────────────────────────────────────

type stubSpeech struct {
	recognized *service.RecognizedCommand
	audio      *speech.Audio
	err        error
	gotName    string
	gotBody    string
}

func (s *stubSpeech) ProcessCommand(text string) voice.Command {
	return voice.Command{Type: "stub", OriginalText: text}
}

func (s *stubSpeech) Recognize(_ context.Context, filename string, audio io.Reader) (*service.RecognizedCommand, error) {
	s.gotName = filename
	b, _ := io.ReadAll(audio)
	s.gotBody = string(b)
	return s.recognized, s.err
}

func (s *stubSpeech) Synthesize(_ context.Context, _ speech.SynthesizeRequest) (*speech.Audio, error) {
	return s.audio, s.err
}

func (s *stubSpeech) Voices(context.Context) speech.VoiceList { return speech.VoiceList{} }

func speechRouter(stub *stubSpeech) *gin.Engine {
	h := NewSpeechHandler(stub, nopLog)
	r := gin.New()
	r.POST("/process-command", h.ProcessCommand)
	r.POST("/recognize", h.Recognize)
	r.POST("/synthesize", h.Synthesize)
	return r
}

func audioUpload(t *testing.T, field string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("RIFF...."))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/recognize", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRecognize(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		w, env := do(t, speechRouter(&stubSpeech{}), audioUpload(t, "other"))
		if w.Code != http.StatusBadRequest || env.Error.Code != response.ErrFileRequired {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("passes upload through", func(t *testing.T) {
		stub := &stubSpeech{recognized: &service.RecognizedCommand{
			Transcription: &speech.Recognition{Transcript: speech.Transcript{Text: "next question", Confidence: 0.9}},
			Command:       voice.Command{Type: voice.CategoryNavigation, Action: "next"},
		}}
		w, env := do(t, speechRouter(stub), audioUpload(t, "audio_file"))
		if w.Code != http.StatusOK {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
		if stub.gotName != "clip.wav" || stub.gotBody != "RIFF...." {
			t.Errorf("upload = %q %q", stub.gotName, stub.gotBody)
		}
		var out service.RecognizedCommand
		if err := json.Unmarshal(env.Data, &out); err != nil {
			t.Fatal(err)
		}
		if out.Command.Action != "next" || out.Transcription.Text != "next question" {
			t.Errorf("data = %s", env.Data)
		}
	})

	t.Run("engine errors", func(t *testing.T) {
		for err, want := range map[error]int{
			speech.ErrNoSpeech:    http.StatusUnprocessableEntity,
			speech.ErrUnavailable: http.StatusServiceUnavailable,
		} {
			w, _ := do(t, speechRouter(&stubSpeech{err: err}), audioUpload(t, "audio_file"))
			if w.Code != want {
				t.Errorf("%v: status %d, want %d", err, w.Code, want)
			}
		}
	})
}

func TestSynthesizeWritesAudio(t *testing.T) {
	stub := &stubSpeech{audio: &speech.Audio{Data: []byte("ID3"), ContentType: "audio/mpeg"}}
	w := httptest.NewRecorder()
	speechRouter(stub).ServeHTTP(w, jsonRequest(http.MethodPost, "/synthesize", `{"text":"hello"}`))

	if w.Code != http.StatusOK || w.Body.String() != "ID3" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %q", ct)
	}

	w = httptest.NewRecorder()
	speechRouter(stub).ServeHTTP(w, jsonRequest(http.MethodPost, "/synthesize", `{"text":"hi","engine":"espeak"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown engine accepted: %d", w.Code)
	}
}

func TestProcessCommandRequiresText(t *testing.T) {
	w, _ := do(t, speechRouter(&stubSpeech{}), jsonRequest(http.MethodPost, "/process-command", `{"text":""}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}

	w, env := do(t, speechRouter(&stubSpeech{}), jsonRequest(http.MethodPost, "/process-command", `{"text":"go back"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var cmd voice.Command
	json.Unmarshal(env.Data, &cmd)
	if cmd.OriginalText != "go back" {
		t.Errorf("command = %+v", cmd)
	}
}
