package quiz

import (
	"fmt"

	"go.uber.org/zap"

	"quiz-server/models"
)

// load returns the stored working set, creating it from a full resample when
// nothing is stored yet. An unreadable store is logged and replaced.
func (s *Service) load() (models.WorkingSet, error) {
	ws, ok, err := s.store.Load()
	if err != nil {
		s.logger.Error("Working set unreadable, resampling", zap.Error(err))
		ok = false
	}
	if ok {
		return ws, nil
	}
	fp, err := s.source.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint subjects: %w", err)
	}
	return s.rebuild(nil, fp)
}

// stale reports whether the subject files differ from the ones the stored
// working set was sampled from, along with the current fingerprint.
func (s *Service) stale() (bool, string, error) {
	fp, err := s.source.Fingerprint()
	if err != nil {
		return false, "", fmt.Errorf("failed to fingerprint subjects: %w", err)
	}
	stored, ok, err := s.store.LoadFingerprint()
	if err != nil {
		s.logger.Error("Store state unreadable, treating working set as stale", zap.Error(err))
		return true, fp, nil
	}
	return !ok || stored != fp, fp, nil
}

func (s *Service) syncIfStale() (models.WorkingSet, error) {
	stale, fp, err := s.stale()
	if err != nil {
		return nil, err
	}
	if stale {
		s.logger.Info("Subject files changed, resampling", zap.String("fingerprint", fp))
		return s.resync(fp)
	}
	return s.load()
}

// resync reconciles the stored working set with freshly sampled pools:
// answered questions stay in front, unanswered ones are dropped and the new
// sample follows without any question the user already answered.
func (s *Service) resync(fp string) (models.WorkingSet, error) {
	current, ok, err := s.store.Load()
	if err != nil {
		s.logger.Error("Working set unreadable, resampling from scratch", zap.Error(err))
		ok = false
	}
	if !ok {
		return s.rebuild(nil, fp)
	}
	return s.rebuild(current.Answered(), fp)
}

// rebuild samples every pool and appends the result to answered, skipping
// duplicates of answered questions, then persists the set under fp.
func (s *Service) rebuild(answered models.WorkingSet, fp string) (models.WorkingSet, error) {
	pools, err := s.source.LoadPools()
	if err != nil {
		return nil, fmt.Errorf("failed to load subject pools: %w", err)
	}
	candidate := s.sampler.Sample(pools)

	seen := make(map[models.QuestionKey]bool, len(answered))
	for _, q := range answered {
		seen[q.Key()] = true
	}
	ws := make(models.WorkingSet, 0, len(answered)+len(candidate))
	ws = append(ws, answered...)
	skipped := 0
	for _, q := range candidate {
		if seen[q.Key()] {
			skipped++
			continue
		}
		ws = append(ws, q)
	}

	if err := s.store.Save(ws, fp); err != nil {
		s.logger.Error("Failed to save working set", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Resampled working set",
		zap.Int("subjects", len(pools)),
		zap.Int("answered_kept", len(answered)),
		zap.Int("duplicates_skipped", skipped),
		zap.Int("questions", len(ws)))
	return ws, nil
}

// save persists ws under the fingerprint already on record.
func (s *Service) save(ws models.WorkingSet) error {
	fp, _, err := s.store.LoadFingerprint()
	if err != nil {
		s.logger.Warn("Store state unreadable, saving without fingerprint", zap.Error(err))
		fp = ""
	}
	if err := s.store.Save(ws, fp); err != nil {
		s.logger.Error("Failed to save working set", zap.Error(err))
		return err
	}
	return nil
}
