package quiz

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quiz-server/ingestion"
	"quiz-server/models"
	"quiz-server/sampler"
	"quiz-server/store"
)

type fixture struct {
	dir   string
	store *store.Store
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "questions.csv"), "|", zap.NewNop())
	require.NoError(t, err)
	loader := ingestion.NewLoader(dir, ".src", "|", zap.NewNop(), st.Path(), st.StatePath())
	return &fixture{
		dir:   dir,
		store: st,
		svc:   NewService(loader, sampler.NewSeeded(7), st, zap.NewNop()),
	}
}

func (f *fixture) writeSubject(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) stored(t *testing.T) models.WorkingSet {
	t.Helper()
	ws, ok, err := f.store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	return ws
}

func keys(ws models.WorkingSet) []models.QuestionKey {
	out := make([]models.QuestionKey, 0, len(ws))
	for _, q := range ws {
		out = append(out, q.Key())
	}
	return out
}

func TestGetWorkingSet_FirstAccess(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "question|answer\n2+2?|TRUE\n3+3?|FALSE\n")

	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	require.Len(t, ws, 2)
	assert.ElementsMatch(t, []models.QuestionKey{
		{Subject: "math", Question: "2+2?"},
		{Subject: "math", Question: "3+3?"},
	}, keys(ws))
	for _, q := range ws {
		assert.Equal(t, models.AnswerNone, q.UserAnswer)
	}
	assert.Equal(t, ws, f.stored(t))

	fp, ok, err := f.store.LoadFingerprint()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, fp)
}

func TestGetWorkingSet_NoSubjects(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetWorkingSet()
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestGetWorkingSet_StableWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\nb|FALSE\nc|TRUE\n")
	f.writeSubject(t, "art.src", "h\nd|TRUE\ne|FALSE\n")

	first, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	second, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	assert.Equal(t, first, second, "an unchanged subject set must not reshuffle")
}

func TestGetWorkingSet_ResyncPreservesAnswered(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\nm1|TRUE\nm2|FALSE\nm3|TRUE\n")
	f.writeSubject(t, "history.src", "h\nh1|TRUE\nh2|FALSE\n")

	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	require.Len(t, ws, 5)

	// Answer two questions, one of them wrong.
	_, err = f.svc.SubmitAnswer(0, "true")
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(3, "false")
	require.NoError(t, err)
	before := f.stored(t)
	answered := before.Answered()
	require.Len(t, answered, 2)

	// Editing a subject file invalidates the fingerprint.
	f.writeSubject(t, "math.src", "h\nm1|TRUE\nm2|FALSE\nm3|TRUE\nm4|FALSE\n")

	after, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	require.Len(t, after, 6, "two answered plus four unanswered")
	assert.Equal(t, answered, after[:2], "answered entries stay first and unchanged")

	seen := make(map[models.QuestionKey]int)
	for _, q := range after {
		seen[q.Key()]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "duplicate %v", k)
	}
	for _, q := range after[2:] {
		assert.False(t, q.Answered())
	}
	assert.Equal(t, after, f.stored(t))

	fp, _, err := f.store.LoadFingerprint()
	require.NoError(t, err)
	again, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	assert.Equal(t, after, again)
	fp2, _, err := f.store.LoadFingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp, fp2)
}

func TestGetWorkingSet_ResyncDropsRemovedSubject(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\nm1|TRUE\nm2|FALSE\n")
	f.writeSubject(t, "history.src", "h\nh1|TRUE\n")

	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	idx := -1
	for i, q := range ws {
		if q.Subject == "history" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	_, err = f.svc.SubmitAnswer(idx, "TRUE")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.dir, "history.src")))
	require.NoError(t, os.Remove(filepath.Join(f.dir, "math.src")))

	after, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	require.Len(t, after, 1, "only the answered history question survives")
	assert.Equal(t, "h1", after[0].Question)
	assert.Equal(t, models.AnswerTrue, after[0].UserAnswer)
}

func TestGetWorkingSet_UnreadableStoreResamples(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\n2+2?|TRUE\n")
	require.NoError(t, os.WriteFile(f.store.Path(), []byte("subject|question|answer|user_answer\n\"broken|quote\n"), 0o644))

	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "2+2?", ws[0].Question)
}

func TestSubmitAnswer_LocalizedCorrect(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\n2+2?|TRUE\n")
	_, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	res, err := f.svc.SubmitAnswer(0, "prawda")
	require.NoError(t, err)
	assert.Equal(t, models.SubmitResult{Accepted: true, Correct: true, CorrectAnswer: models.AnswerTrue}, res)
	assert.Equal(t, models.AnswerTrue, f.stored(t)[0].UserAnswer)
}

func TestSubmitAnswer_Incorrect(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\n3+3?|FALSE\n")
	_, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	res, err := f.svc.SubmitAnswer(0, " True ")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.False(t, res.Correct)
	assert.Equal(t, models.AnswerFalse, res.CorrectAnswer)
	assert.Equal(t, models.AnswerTrue, f.stored(t)[0].UserAnswer)
}

func TestSubmitAnswer_InvalidIndexLeavesStore(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\nb|FALSE\nc|TRUE\n")
	_, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	before, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)

	for _, idx := range []int{5, 3, -1} {
		_, err = f.svc.SubmitAnswer(idx, "TRUE")
		assert.ErrorIs(t, err, ErrInvalidIndex, "index %d", idx)
	}

	after, err := os.ReadFile(f.store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSubmitAnswer_InvalidAnswer(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\n")
	_, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(0, "maybe")
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	assert.False(t, f.stored(t)[0].Answered())
}

func TestSubmitAnswer_AlreadyAnswered(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\n")
	_, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	_, err = f.svc.SubmitAnswer(0, "FALSE")
	require.NoError(t, err)
	res, err := f.svc.SubmitAnswer(0, "TRUE")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.False(t, res.Correct)
	assert.Equal(t, models.AnswerFalse, f.stored(t)[0].UserAnswer)
}

func TestSubmitAnswerByID(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\nb|FALSE\n")
	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	target := ws[1]

	res, err := f.svc.SubmitAnswerByID(target.ID(), "false")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, target.CorrectAnswer == models.AnswerFalse, res.Correct)

	stored := f.stored(t)
	assert.Equal(t, target.Key(), stored[0].Key(), "answered question moves to the front on load")

	_, err = f.svc.SubmitAnswerByID("unknown", "true")
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestResetWrongAnswers(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\nright|TRUE\nwrong|TRUE\nopen|FALSE\n")
	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)

	idOf := func(question string) string {
		for _, q := range ws {
			if q.Question == question {
				return q.ID()
			}
		}
		t.Fatalf("question %q not found", question)
		return ""
	}
	// Positions shift once an answer moves to the front, so address by ID.
	_, err = f.svc.SubmitAnswerByID(idOf("right"), "TRUE")
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswerByID(idOf("wrong"), "FALSE")
	require.NoError(t, err)

	after, err := f.svc.ResetWrongAnswers()
	require.NoError(t, err)
	require.Len(t, after, 3)

	byQuestion := make(map[string]models.QuestionRecord)
	for _, q := range after {
		byQuestion[q.Question] = q
	}
	assert.Equal(t, models.AnswerTrue, byQuestion["right"].UserAnswer)
	assert.Equal(t, models.AnswerNone, byQuestion["wrong"].UserAnswer)
	assert.Equal(t, models.AnswerNone, byQuestion["open"].UserAnswer)
	assert.Equal(t, "right", after[0].Question, "answered entries come first")
	assert.Equal(t, after, f.stored(t))
}

func TestForceResample(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\nb|FALSE\nc|TRUE\n")
	ws, err := f.svc.GetWorkingSet()
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(2, "TRUE")
	require.NoError(t, err)
	answered := ws[2]

	after, err := f.svc.ForceResample()
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, answered.Key(), after[0].Key())
	assert.Equal(t, models.AnswerTrue, after[0].UserAnswer)
	assert.ElementsMatch(t, keys(ws), keys(after))
}

func TestForceResample_NoSubjects(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForceResample()
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSyncIfStale(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\n")

	changed, err := f.svc.SyncIfStale()
	require.NoError(t, err)
	assert.True(t, changed, "no fingerprint on record yet")

	changed, err = f.svc.SyncIfStale()
	require.NoError(t, err)
	assert.False(t, changed)

	f.writeSubject(t, "math.src", "h\na|FALSE\n")
	changed, err = f.svc.SyncIfStale()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.AnswerFalse, f.stored(t)[0].CorrectAnswer)
}

type failingStore struct {
	*store.Store
}

func (failingStore) Save(models.WorkingSet, string) error {
	return errors.New("disk full")
}

func TestSave_FailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.writeSubject(t, "math.src", "h\na|TRUE\n")
	loader := ingestion.NewLoader(f.dir, ".src", "|", zap.NewNop())
	svc := NewService(loader, sampler.NewSeeded(1), failingStore{f.store}, zap.NewNop())

	_, err := svc.GetWorkingSet()
	assert.EqualError(t, err, "disk full")
}
