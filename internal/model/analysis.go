package model

// AnalyzeTextRequest is the payload of the text analysis endpoint.
type AnalyzeTextRequest struct {
	Text string `json:"text" binding:"required,max=50000"`
}

// PlagiarismRequest compares text against reference texts. With no references the
// in-process corpus is used.
type PlagiarismRequest struct {
	Text           string   `json:"text" binding:"required,max=50000"`
	ReferenceTexts []string `json:"reference_texts" binding:"omitempty,max=100,dive,max=50000"`
}

// GradeEssayRequest asks for an automated essay score.
type GradeEssayRequest struct {
	EssayText    string  `json:"essay_text" binding:"max=50000"`
	QuestionText string  `json:"question_text" binding:"required,max=5000"`
	MaxScore     float64 `json:"max_score" binding:"omitempty,gt=0,max=1000"`
}

// VoiceCommandRequest is a transcribed utterance to interpret.
type VoiceCommandRequest struct {
	Text string `json:"text" binding:"required,max=500"`
}

// SynthesizeSpeechRequest is the payload of the text-to-speech endpoint.
type SynthesizeSpeechRequest struct {
	Text    string `json:"text" binding:"required,max=5000"`
	Engine  string `json:"engine" binding:"omitempty,oneof=pyttsx3 gtts"`
	Rate    int    `json:"rate" binding:"omitempty,min=50,max=400"`
	VoiceID string `json:"voice_id" binding:"omitempty,max=255"`
}
