package sampler

import (
	"math/rand"
	"time"

	"quiz-server/models"
)

// Sampler draws a balanced working set from subject pools. It is not safe
// for concurrent use; callers serialize access.
type Sampler struct {
	r *rand.Rand
}

// New returns a Sampler using r as its random source. A nil r seeds from the
// current time.
func New(r *rand.Rand) *Sampler {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{r: r}
}

// NewSeeded returns a Sampler with a deterministic random source.
func NewSeeded(seed int64) *Sampler {
	return New(rand.New(rand.NewSource(seed)))
}

// Sample builds the working set round by round: each round draws one random
// question from every pool that still has questions, shuffles the round and
// appends it. Every input question appears exactly once. The input pools are
// not modified.
func (s *Sampler) Sample(pools []models.SubjectPool) models.WorkingSet {
	// Work on copies so the removal of drawn questions stays local.
	remaining := make([][]models.QuestionRecord, 0, len(pools))
	total := 0
	for _, p := range pools {
		if len(p.Questions) == 0 {
			continue
		}
		remaining = append(remaining, append([]models.QuestionRecord(nil), p.Questions...))
		total += len(p.Questions)
	}

	out := make(models.WorkingSet, 0, total)
	for len(remaining) > 0 {
		round := make([]models.QuestionRecord, 0, len(remaining))
		next := remaining[:0]
		for _, qs := range remaining {
			i := s.r.Intn(len(qs))
			round = append(round, qs[i])
			// Remove the drawn question; order inside the pool does not matter.
			qs[i] = qs[len(qs)-1]
			qs = qs[:len(qs)-1]
			if len(qs) > 0 {
				next = append(next, qs)
			}
		}
		remaining = next
		s.r.Shuffle(len(round), func(i, j int) {
			round[i], round[j] = round[j], round[i]
		})
		out = append(out, round...)
	}
	return out
}
