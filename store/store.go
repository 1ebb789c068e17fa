package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quiz-server/models"
	"quiz-server/utils"
)

// Header is the first row of the working-set file.
var Header = []string{"subject", "question", "answer", "user_answer"}

// Store persists the working set as a delimited file and the fingerprint of
// the subject files it was sampled from in a YAML sidecar. Every save
// rewrites both files in full. There is no locking across processes.
type Store struct {
	path      string
	statePath string
	comma     rune
	logger    *zap.Logger
}

// New creates a Store writing to path with the given single-character
// delimiter. The sidecar lives next to it as <name>.state.yaml.
func New(path, delimiter string, logger *zap.Logger) (*Store, error) {
	comma, size := utf8.DecodeRuneInString(delimiter)
	if size == 0 || size != len(delimiter) || comma == utf8.RuneError {
		return nil, fmt.Errorf("store delimiter must be a single character, got %q", delimiter)
	}
	ext := filepath.Ext(path)
	return &Store{
		path:      path,
		statePath: strings.TrimSuffix(path, ext) + ".state.yaml",
		comma:     comma,
		logger:    logger,
	}, nil
}

// Path returns the working-set file path.
func (s *Store) Path() string {
	return s.path
}

// StatePath returns the sidecar path.
func (s *Store) StatePath() string {
	return s.statePath
}

// Load reads the working set. A missing file is reported as ok=false with no
// error. The result is always in answered-first order.
func (s *Store) Load() (models.WorkingSet, bool, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open working set %s: %w", s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = s.comma
	reader.FieldsPerRecord = -1 // user_answer column is optional

	ws := models.WorkingSet{}
	lineNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to read working set %s: %w", s.path, err)
		}
		lineNum++
		if lineNum == 1 {
			continue // header
		}
		if len(row) < 3 {
			s.logger.Warn("Skipping malformed working set row", zap.String("path", s.path), zap.Int("line", lineNum))
			continue
		}
		q := models.QuestionRecord{
			Subject:       row[0],
			Question:      row[1],
			CorrectAnswer: utils.NormalizeAnswer(row[2]),
		}
		if len(row) > 3 {
			q.UserAnswer = utils.NormalizeAnswer(row[3])
		}
		ws = append(ws, q)
	}
	s.logger.Debug("Loaded working set", zap.String("path", s.path), zap.Int("questions", len(ws)))
	return ws.Partition(), true, nil
}

// LoadFingerprint returns the fingerprint recorded by the last Save. A
// missing sidecar yields ok=false with no error.
func (s *Store) LoadFingerprint() (string, bool, error) {
	state, ok, err := s.LoadState()
	if err != nil || !ok {
		return "", ok, err
	}
	return state.Fingerprint, state.Fingerprint != "", nil
}

// LoadState returns the full sidecar contents.
func (s *Store) LoadState() (models.StoreState, bool, error) {
	var state models.StoreState
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, false, nil
		}
		return state, false, fmt.Errorf("failed to read store state %s: %w", s.statePath, err)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, false, fmt.Errorf("failed to parse store state %s: %w", s.statePath, err)
	}
	return state, true, nil
}

// Save overwrites the working set and records fp as its fingerprint. Both
// files are written to a temporary file first and renamed into place.
func (s *Store) Save(ws models.WorkingSet, fp string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	err := writeAtomic(s.path, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		writer.Comma = s.comma
		if err := writer.Write(Header); err != nil {
			return err
		}
		for _, q := range ws {
			if err := writer.Write([]string{q.Subject, q.Question, string(q.CorrectAnswer), string(q.UserAnswer)}); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return fmt.Errorf("failed to write working set %s: %w", s.path, err)
	}

	state := models.StoreState{Fingerprint: fp, SavedAt: time.Now().UTC(), Questions: len(ws)}
	err = writeAtomic(s.statePath, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(state); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to write store state %s: %w", s.statePath, err)
	}

	s.logger.Debug("Saved working set", zap.String("path", s.path), zap.Int("questions", len(ws)))
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
