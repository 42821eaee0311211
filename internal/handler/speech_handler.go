package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/opsis/opsis-backend/internal/speech"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/opsis/opsis-backend/internal/voice"
	"github.com/rs/zerolog"
)

// maxAudioUpload bounds the recognize upload.
const maxAudioUpload = 10 << 20

// SpeechUseCases is the speech surface used by SpeechHandler.
type SpeechUseCases interface {
	ProcessCommand(text string) voice.Command
	Recognize(ctx context.Context, filename string, audio io.Reader) (*service.RecognizedCommand, error)
	Synthesize(ctx context.Context, req speech.SynthesizeRequest) (*speech.Audio, error)
	Voices(ctx context.Context) speech.VoiceList
}

// SpeechHandler handles voice command and speech endpoints.
type SpeechHandler struct {
	speech SpeechUseCases
	log    zerolog.Logger
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(s SpeechUseCases, log zerolog.Logger) *SpeechHandler {
	return &SpeechHandler{
		speech: s,
		log:    log.With().Str("component", "speech_handler").Logger(),
	}
}

// ProcessCommand godoc
// POST /api/speech/process-command
func (h *SpeechHandler) ProcessCommand(c *gin.Context) {
	var req model.VoiceCommandRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	response.Success(c, http.StatusOK, h.speech.ProcessCommand(req.Text))
}

// Recognize godoc
// POST /api/speech/recognize
// Expects a multipart form with an audio_file part.
func (h *SpeechHandler) Recognize(c *gin.Context) {
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fileHeader.Size > maxAudioUpload {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	defer file.Close()

	res, err := h.speech.Recognize(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Synthesize godoc
// POST /api/speech/synthesize
// Responds with the raw audio bytes.
func (h *SpeechHandler) Synthesize(c *gin.Context) {
	var req model.SynthesizeSpeechRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	audio, err := h.speech.Synthesize(c.Request.Context(), speech.SynthesizeRequest{
		Text:    req.Text,
		Engine:  req.Engine,
		Rate:    req.Rate,
		VoiceID: req.VoiceID,
	})
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="speech"`)
	c.Data(http.StatusOK, audio.ContentType, audio.Data)
}

// Voices godoc
// GET /api/speech/voices
func (h *SpeechHandler) Voices(c *gin.Context) {
	response.Success(c, http.StatusOK, h.speech.Voices(c.Request.Context()))
}
