package quiz

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"quiz-server/models"
	"quiz-server/utils"
)

var (
	// ErrInvalidIndex is returned when a submission addresses no question.
	ErrInvalidIndex = errors.New("invalid question index")
	// ErrInvalidAnswer is returned when submitted text is neither true nor false.
	ErrInvalidAnswer = errors.New("answer must be true or false")
	// ErrNoQuestions is returned when there is nothing to serve.
	ErrNoQuestions = errors.New("no questions available")
)

// PoolSource supplies subject pools and their fingerprint.
type PoolSource interface {
	LoadPools() ([]models.SubjectPool, error)
	Fingerprint() (string, error)
}

// Sampler orders pools into a working set.
type Sampler interface {
	Sample(pools []models.SubjectPool) models.WorkingSet
}

// Store persists the working set.
type Store interface {
	Load() (models.WorkingSet, bool, error)
	Save(ws models.WorkingSet, fp string) error
	LoadFingerprint() (string, bool, error)
}

// Service implements the quiz operations. Each call runs a complete
// load-mutate-save cycle against the store; nothing is cached in memory.
// Calls are serialized within the process. Separate processes sharing one
// store file are not coordinated and the last write wins.
type Service struct {
	mu      sync.Mutex
	source  PoolSource
	sampler Sampler
	store   Store
	logger  *zap.Logger
}

// NewService wires the quiz components together.
func NewService(source PoolSource, sampler Sampler, store Store, logger *zap.Logger) *Service {
	return &Service{
		source:  source,
		sampler: sampler,
		store:   store,
		logger:  logger,
	}
}

// GetWorkingSet returns the current working set, resampling first when the
// subject files changed since the last save.
func (s *Service) GetWorkingSet() (models.WorkingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.syncIfStale()
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, ErrNoQuestions
	}
	return ws, nil
}

// SyncIfStale resamples when the subject files changed. It reports whether a
// resample happened.
func (s *Service) SyncIfStale() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale, fp, err := s.stale()
	if err != nil || !stale {
		return false, err
	}
	if _, err := s.resync(fp); err != nil {
		return false, err
	}
	return true, nil
}

// SubmitAnswer records answerText for the question at index. Questions that
// already carry an answer are not changed and come back with Accepted=false.
func (s *Service) SubmitAnswer(index int, answerText string) (models.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.load()
	if err != nil {
		return models.SubmitResult{}, err
	}
	return s.submit(ws, index, answerText)
}

// SubmitAnswerByID is SubmitAnswer addressed by the question's stable ID.
func (s *Service) SubmitAnswerByID(id, answerText string) (models.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.load()
	if err != nil {
		return models.SubmitResult{}, err
	}
	return s.submit(ws, ws.IndexOf(id), answerText)
}

func (s *Service) submit(ws models.WorkingSet, index int, answerText string) (models.SubmitResult, error) {
	if index < 0 || index >= len(ws) {
		s.logger.Warn("Invalid question index", zap.Int("index", index), zap.Int("questions", len(ws)))
		return models.SubmitResult{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	answer := utils.NormalizeAnswer(answerText)
	if !answer.IsValid() {
		return models.SubmitResult{}, fmt.Errorf("%w: %q", ErrInvalidAnswer, answerText)
	}

	q := ws[index]
	if q.Answered() {
		s.logger.Info("Question already answered", zap.Int("index", index), zap.String("subject", q.Subject))
		return models.SubmitResult{Accepted: false, Correct: q.Correct(), CorrectAnswer: q.CorrectAnswer}, nil
	}

	ws[index].UserAnswer = answer
	if err := s.save(ws); err != nil {
		return models.SubmitResult{}, err
	}
	correct := answer == q.CorrectAnswer
	s.logger.Info("Answer submitted",
		zap.Int("index", index),
		zap.String("subject", q.Subject),
		zap.Bool("correct", correct))
	return models.SubmitResult{Accepted: true, Correct: correct, CorrectAnswer: q.CorrectAnswer}, nil
}

// ResetWrongAnswers clears the user answer of every incorrectly answered
// question. Correct answers are kept.
func (s *Service) ResetWrongAnswers() (models.WorkingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.load()
	if err != nil {
		return nil, err
	}
	reset := 0
	for i, q := range ws {
		if q.Answered() && !q.Correct() {
			ws[i].UserAnswer = models.AnswerNone
			reset++
		}
	}
	if err := s.save(ws); err != nil {
		return nil, err
	}
	s.logger.Info("Reset wrong answers", zap.Int("reset", reset))
	ws = ws.Partition()
	if len(ws) == 0 {
		return nil, ErrNoQuestions
	}
	return ws, nil
}

// ForceResample rebuilds the working set from the subject pools regardless
// of the fingerprint, keeping answered questions.
func (s *Service) ForceResample() (models.WorkingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp, err := s.source.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint subjects: %w", err)
	}
	ws, err := s.resync(fp)
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, ErrNoQuestions
	}
	return ws, nil
}

// Stats summarizes progress without triggering a resample.
func (s *Service) Stats() (models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.load()
	if err != nil {
		return models.Stats{}, err
	}
	return ComputeStats(ws), nil
}
