package models

import (
	"time"

	"github.com/google/uuid"
)

// Answer is the canonical two-valued answer form. The zero value means
// "not answered" and is only valid for a user answer.
type Answer string

const (
	AnswerNone  Answer = ""
	AnswerTrue  Answer = "TRUE"
	AnswerFalse Answer = "FALSE"
)

// IsValid reports whether a is TRUE or FALSE.
func (a Answer) IsValid() bool {
	return a == AnswerTrue || a == AnswerFalse
}

// questionNamespace scopes the name-based question IDs.
var questionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quiz-server/questions"))

// QuestionRecord is one true/false question as served to the user.
type QuestionRecord struct {
	Subject       string `json:"subject"`
	Question      string `json:"question"`
	CorrectAnswer Answer `json:"correct_answer"`
	UserAnswer    Answer `json:"user_answer"`
}

// ID returns a stable identifier derived from subject and question text.
// It survives resamples, unlike the record's position in the working set.
func (q QuestionRecord) ID() string {
	return uuid.NewSHA1(questionNamespace, []byte(q.Subject+"\x00"+q.Question)).String()
}

// Key identifies a question across resamples for duplicate detection.
func (q QuestionRecord) Key() QuestionKey {
	return QuestionKey{Subject: q.Subject, Question: q.Question}
}

// Answered reports whether the user has submitted an answer.
func (q QuestionRecord) Answered() bool {
	return q.UserAnswer != AnswerNone
}

// Correct reports whether the record was answered correctly.
func (q QuestionRecord) Correct() bool {
	return q.Answered() && q.UserAnswer == q.CorrectAnswer
}

// QuestionKey is the (subject, question) pair.
type QuestionKey struct {
	Subject  string
	Question string
}

// SubjectPool holds the freshly parsed questions of one subject file.
type SubjectPool struct {
	Subject   string
	Questions []QuestionRecord
}

// WorkingSet is the ordered, persisted question list.
type WorkingSet []QuestionRecord

// Partition returns a copy of ws with answered records first, keeping the
// relative order inside each group.
func (ws WorkingSet) Partition() WorkingSet {
	out := make(WorkingSet, 0, len(ws))
	for _, q := range ws {
		if q.Answered() {
			out = append(out, q)
		}
	}
	for _, q := range ws {
		if !q.Answered() {
			out = append(out, q)
		}
	}
	return out
}

// Answered returns the answered records in order.
func (ws WorkingSet) Answered() WorkingSet {
	var out WorkingSet
	for _, q := range ws {
		if q.Answered() {
			out = append(out, q)
		}
	}
	return out
}

// IndexOf returns the position of the record with the given stable ID, or -1.
func (ws WorkingSet) IndexOf(id string) int {
	for i, q := range ws {
		if q.ID() == id {
			return i
		}
	}
	return -1
}

// StoreState is the sidecar persisted next to the working-set file.
type StoreState struct {
	Fingerprint string    `yaml:"fingerprint"`
	SavedAt     time.Time `yaml:"saved_at"`
	Questions   int       `yaml:"questions"`
}

// SubmitResult is the outcome of an answer submission.
type SubmitResult struct {
	Accepted      bool   `json:"accepted"`
	Correct       bool   `json:"correct"`
	CorrectAnswer Answer `json:"correct_answer"`
}

// SubjectStats breaks progress down for one subject.
type SubjectStats struct {
	Subject  string `json:"subject"`
	Total    int    `json:"total"`
	Answered int    `json:"answered"`
	Correct  int    `json:"correct"`
}

// Stats summarizes progress over the working set.
type Stats struct {
	Total              int            `json:"total"`
	Answered           int            `json:"answered"`
	Correct            int            `json:"correct"`
	AnsweredPercentage float64        `json:"answered_percentage"`
	TotalAccuracy      float64        `json:"total_accuracy"`
	RollingAccuracy    float64        `json:"rolling_accuracy"`
	Subjects           []SubjectStats `json:"subjects"`
}

// QuestionResponse is the wire form of a QuestionRecord.
type QuestionResponse struct {
	ID            string `json:"id"`
	Index         int    `json:"index"`
	Subject       string `json:"subject"`
	Question      string `json:"question"`
	CorrectAnswer Answer `json:"correct_answer"`
	UserAnswer    Answer `json:"user_answer"`
}

// AnswerRequest for submitting an answer. Either Index or ID addresses the
// question; ID wins when both are present.
type AnswerRequest struct {
	Index  *int   `json:"index"`
	ID     string `json:"id"`
	Answer string `json:"answer" binding:"required"`
}

// AnswerResponse mirrors SubmitResult with the success flag the frontend expects.
type AnswerResponse struct {
	Success       bool   `json:"success"`
	Accepted      bool   `json:"accepted"`
	Correct       bool   `json:"correct"`
	CorrectAnswer Answer `json:"correct_answer"`
}
