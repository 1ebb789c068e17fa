package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-server/models"
	"quiz-server/quiz"
)

// Health reports liveness.
// GET /health
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

// GetQuestions returns the working set, resampling first if subject files changed.
// GET /api/questions
func GetQuestions(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := svc.GetWorkingSet()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(ws))
	}
}

// SubmitAnswer records an answer for one question, addressed by index or id.
// POST /api/answer
func SubmitAnswer(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request data"})
			return
		}

		var (
			res models.SubmitResult
			err error
		)
		switch {
		case req.ID != "":
			res, err = svc.SubmitAnswerByID(req.ID, req.Answer)
		case req.Index != nil:
			res, err = svc.SubmitAnswer(*req.Index, req.Answer)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request data"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.AnswerResponse{
			Success:       true,
			Accepted:      res.Accepted,
			Correct:       res.Correct,
			CorrectAnswer: res.CorrectAnswer,
		})
	}
}

// ResetWrong clears every incorrect answer.
// POST /api/reset-wrong
func ResetWrong(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := svc.ResetWrongAnswers()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(ws))
	}
}

// Resample rebuilds the working set from the subject files, keeping answers.
// POST /api/resample
func Resample(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := svc.ForceResample()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResponse(ws))
	}
}

// GetStats returns accuracy and progress figures.
// GET /api/stats
func GetStats(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Stats()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func toResponse(ws models.WorkingSet) []models.QuestionResponse {
	out := make([]models.QuestionResponse, 0, len(ws))
	for i, q := range ws {
		out = append(out, models.QuestionResponse{
			ID:            q.ID(),
			Index:         i,
			Subject:       q.Subject,
			Question:      q.Question,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    q.UserAnswer,
		})
	}
	return out
}

// respondError maps service errors onto HTTP statuses. Details of internal
// failures stay in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quiz.ErrInvalidIndex):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid question index"})
	case errors.Is(err, quiz.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Answer must be true or false"})
	case errors.Is(err, quiz.ErrNoQuestions):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "No questions available"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
