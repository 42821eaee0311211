package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PeerAnswerSource returns what other finished attempts answered to a question.
type PeerAnswerSource interface {
	PeerAnswers(ctx context.Context, examID uuid.UUID, questionID string, exclude uuid.UUID) ([]string, error)
}

// AnalysisService runs the text heuristics for attempts and the analysis endpoints.
// Failures are logged and replaced by neutral defaults.
type AnalysisService struct {
	analyzer    *nlp.Analyzer
	peers       PeerAnswerSource
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewAnalysisService creates a new AnalysisService. concurrency bounds how many answers
// of one attempt are analysed at once.
func NewAnalysisService(analyzer *nlp.Analyzer, peers PeerAnswerSource, concurrency int, m *metrics.Metrics, log zerolog.Logger) *AnalysisService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AnalysisService{
		analyzer:    analyzer,
		peers:       peers,
		concurrency: concurrency,
		metrics:     m,
		log:         log.With().Str("component", "analysis_service").Logger(),
	}
}

// AnalyzeAttempt scores the essay and short-answer responses of attempt. Each answer is
// compared with other submissions to the same question and with the in-process corpus.
func (s *AnalysisService) AnalyzeAttempt(ctx context.Context, attempt *model.Attempt, questions []model.Question) (nlp.AttemptAnalysis, error) {
	type job struct {
		questionID string
		answer     string
	}
	var jobs []job
	for _, q := range questions {
		if !q.Type.FreeText() {
			continue
		}
		qid := q.ID.String()
		if answer, ok := attempt.TextAnswer(qid); ok && answer != "" {
			jobs = append(jobs, job{questionID: qid, answer: answer})
		}
	}
	if len(jobs) == 0 {
		return nlp.DefaultAttemptAnalysis(), nil
	}

	results := make([]nlp.AnswerAnalysis, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			refs, err := s.peers.PeerAnswers(gctx, attempt.ExamID, j.questionID, attempt.ID)
			if err != nil {
				return fmt.Errorf("load peer answers for %s: %w", j.questionID, err)
			}
			res, err := s.analyzer.AnalyzeAnswer(j.questionID, j.answer, refs)
			if err != nil {
				return fmt.Errorf("analyze answer %s: %w", j.questionID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nlp.DefaultAttemptAnalysis(), err
	}

	for _, j := range jobs {
		s.analyzer.AddReference(j.answer)
	}
	return nlp.Aggregate(results), nil
}

// AnalyzeAttemptOrDefault is AnalyzeAttempt with failures logged and degraded to the
// default analysis.
func (s *AnalysisService) AnalyzeAttemptOrDefault(ctx context.Context, attempt *model.Attempt, questions []model.Question) nlp.AttemptAnalysis {
	res, err := s.AnalyzeAttempt(ctx, attempt, questions)
	if err != nil {
		s.fail(err, "attempt", attempt.ID.String())
		return nlp.DefaultAttemptAnalysis()
	}
	return res
}

// AnalyzeText runs every heuristic over text.
func (s *AnalysisService) AnalyzeText(text string) nlp.TextAnalysis {
	res, err := nlp.AnalyzeText(text)
	if err != nil {
		s.fail(err, "text", "")
		return nlp.TextAnalysis{
			Text:      text,
			WordCount: nlp.WordCount(text),
			Keywords:  []string{},
		}
	}
	return res
}

// CheckPlagiarism compares text with references, or with the corpus when none are
// given.
func (s *AnalysisService) CheckPlagiarism(text string, references []string) nlp.PlagiarismResult {
	res, err := s.analyzer.CheckPlagiarism(text, references)
	if err != nil {
		s.fail(err, "plagiarism", "")
		return nlp.NoPlagiarism()
	}
	return res
}

// GradeEssay suggests a score for essay. maxScore defaults to nlp.DefaultEssayMaxScore.
func (s *AnalysisService) GradeEssay(essay, question string, maxScore float64) nlp.EssayGrade {
	if maxScore <= 0 {
		maxScore = nlp.DefaultEssayMaxScore
	}
	res, err := nlp.GradeEssay(essay, question, maxScore)
	if err != nil {
		s.fail(err, "essay", "")
		return nlp.DefaultEssayGrade(maxScore)
	}
	return res
}

func (s *AnalysisService) fail(err error, kind, id string) {
	s.metrics.AnalysisFailures.Inc()
	ev := s.log.Warn().Err(err).Str("kind", kind)
	if id != "" {
		ev = ev.Str("id", id)
	}
	ev.Msg("Text analysis failed, using default result")
}
