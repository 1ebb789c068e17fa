package ingestion

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"quiz-server/models"
	"quiz-server/utils"
)

const maxSplits = 2 // question | answer | optional trailing field

// Loader reads subject source files from a single directory. Each file with
// the configured extension is one subject.
type Loader struct {
	dir       string
	ext       string
	delimiter string
	exclude   map[string]bool // absolute paths never treated as subjects
	logger    *zap.Logger
}

// NewLoader creates a Loader for dir. Files listed in exclude (typically the
// working-set store living in the same directory) are skipped.
func NewLoader(dir, ext, delimiter string, logger *zap.Logger, exclude ...string) *Loader {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ex := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			ex[abs] = true
		}
	}
	return &Loader{
		dir:       dir,
		ext:       ext,
		delimiter: delimiter,
		exclude:   ex,
		logger:    logger,
	}
}

// Dir returns the subject directory.
func (l *Loader) Dir() string {
	return l.dir
}

// IsSubjectFile reports whether path names a subject source file.
func (l *Loader) IsSubjectFile(path string) bool {
	if filepath.Ext(path) != l.ext {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil && l.exclude[abs] {
		return false
	}
	return true
}

// SubjectFiles lists subject source files sorted by name. A missing
// directory yields no subjects.
func (l *Loader) SubjectFiles() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list subject directory %s: %w", l.dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		if l.IsSubjectFile(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// SubjectName derives the subject from the file's base name without extension.
func SubjectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadPool parses one subject file. The header line is skipped and each row
// is split from the right so the question text may contain the delimiter.
// Malformed rows are logged and skipped; an unreadable file yields an empty
// pool.
func (l *Loader) LoadPool(path string) models.SubjectPool {
	subject := SubjectName(path)
	pool := models.SubjectPool{Subject: subject}

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error("Failed to open subject file", zap.String("subject", subject), zap.String("path", path), zap.Error(err))
		return pool
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue // header
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		q, ok := l.parseRow(line)
		if !ok {
			l.logger.Warn("Skipping malformed row",
				zap.String("subject", subject),
				zap.String("path", path),
				zap.Int("line", lineNum),
				zap.String("row", line))
			continue
		}
		q.Subject = subject
		pool.Questions = append(pool.Questions, q)
	}
	if err := scanner.Err(); err != nil {
		l.logger.Error("Failed to read subject file", zap.String("subject", subject), zap.String("path", path), zap.Error(err))
		return models.SubjectPool{Subject: subject}
	}
	return pool
}

// parseRow turns "question|answer[|trailing]" into a record. When the row has
// three fields but only the last one is a recognizable answer, the middle
// field is taken to be part of the question.
func (l *Loader) parseRow(line string) (models.QuestionRecord, bool) {
	parts := utils.SplitRight(line, l.delimiter, maxSplits)
	if len(parts) < 2 {
		return models.QuestionRecord{}, false
	}
	question, answer := parts[0], parts[1]
	if len(parts) == 3 {
		if !utils.NormalizeAnswer(parts[1]).IsValid() && utils.NormalizeAnswer(parts[2]).IsValid() {
			question, answer = parts[0]+l.delimiter+parts[1], parts[2]
		}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return models.QuestionRecord{}, false
	}
	return models.QuestionRecord{
		Question:      question,
		CorrectAnswer: utils.NormalizeAnswer(answer),
		UserAnswer:    models.AnswerNone,
	}, true
}

// LoadPools loads every subject file and returns the non-empty pools in
// file-name order.
func (l *Loader) LoadPools() ([]models.SubjectPool, error) {
	files, err := l.SubjectFiles()
	if err != nil {
		return nil, err
	}
	pools := make([]models.SubjectPool, 0, len(files))
	for _, f := range files {
		pool := l.LoadPool(f)
		if len(pool.Questions) == 0 {
			l.logger.Warn("Subject has no questions", zap.String("subject", pool.Subject))
			continue
		}
		pools = append(pools, pool)
	}
	l.logger.Debug("Loaded subject pools", zap.Int("subjects", len(pools)), zap.Int("files", len(files)))
	return pools, nil
}

// Fingerprint digests the raw contents of every subject file in name order.
// File names are mixed in so that renaming a subject also counts as a change.
func (l *Loader) Fingerprint() (string, error) {
	files, err := l.SubjectFiles()
	if err != nil {
		return "", err
	}
	hasher := sha256.New()
	for _, f := range files {
		hasher.Write([]byte(filepath.Base(f)))
		hasher.Write([]byte{0})
		data, err := os.ReadFile(f)
		if err != nil {
			l.logger.Error("Failed to read subject file for fingerprint", zap.String("path", f), zap.Error(err))
			hasher.Write([]byte("\x01unreadable"))
		} else {
			hasher.Write(data)
		}
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
