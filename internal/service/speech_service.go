package service

import (
	"context"
	"io"

	"github.com/opsis/opsis-backend/internal/speech"
	"github.com/opsis/opsis-backend/internal/voice"
	"github.com/rs/zerolog"
)

// SpeechEngine is the external speech-to-text and text-to-speech collaborator.
type SpeechEngine interface {
	Recognize(ctx context.Context, filename string, audio io.Reader) (*speech.Recognition, error)
	Synthesize(ctx context.Context, req speech.SynthesizeRequest) (*speech.Audio, error)
	Voices(ctx context.Context) speech.VoiceList
}

// CommandInterpreter maps utterances to voice commands.
type CommandInterpreter interface {
	Interpret(text string) voice.Command
}

// RecognizedCommand is a transcription together with its interpretation.
type RecognizedCommand struct {
	Transcription *speech.Recognition `json:"transcription"`
	Command       voice.Command       `json:"command"`
}

// SpeechService combines the speech engine with the voice command interpreter.
type SpeechService struct {
	engine      SpeechEngine
	interpreter CommandInterpreter
	log         zerolog.Logger
}

// NewSpeechService creates a new SpeechService.
func NewSpeechService(engine SpeechEngine, interpreter CommandInterpreter, log zerolog.Logger) *SpeechService {
	return &SpeechService{
		engine:      engine,
		interpreter: interpreter,
		log:         log.With().Str("component", "speech_service").Logger(),
	}
}

// ProcessCommand interprets already transcribed text.
func (s *SpeechService) ProcessCommand(text string) voice.Command {
	cmd := s.interpreter.Interpret(text)
	if !cmd.Known() {
		s.log.Debug().Str("text", text).Strs("suggestions", cmd.Suggestions).Msg("Unrecognized voice command")
	}
	return cmd
}

// Recognize transcribes audio and interprets the best transcript.
func (s *SpeechService) Recognize(ctx context.Context, filename string, audio io.Reader) (*RecognizedCommand, error) {
	rec, err := s.engine.Recognize(ctx, filename, audio)
	if err != nil {
		return nil, err
	}
	return &RecognizedCommand{
		Transcription: rec,
		Command:       s.ProcessCommand(rec.Text),
	}, nil
}

// Synthesize speaks text with the engine defaults filled in.
func (s *SpeechService) Synthesize(ctx context.Context, req speech.SynthesizeRequest) (*speech.Audio, error) {
	return s.engine.Synthesize(ctx, req)
}

// Voices lists the engine's voices, or a fallback list.
func (s *SpeechService) Voices(ctx context.Context) speech.VoiceList {
	return s.engine.Voices(ctx)
}
