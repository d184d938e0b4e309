// Package runtime handles the infrastructure-level tasks like loading configuration and files.
package runtime

import (
	"embed"
	"fmt"
	"os"
	"standupbot/domain/standup"
	"standupbot/errors"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions/*
var questionsFolder embed.FS

const defaultQuestionsPath = "questions/default.yaml"

// QuestionCatalog is the YAML layout of a question file.
type QuestionCatalog struct {
	Questions []string `yaml:"questions"`
}

// QuestionLoader reads the question catalog from the embedded default or from a file.
type QuestionLoader struct {
	fs embed.FS
}

func NewQuestionLoader() *QuestionLoader {
	return &QuestionLoader{fs: questionsFolder}
}

// Load reads path when given, the embedded default otherwise.
// Blank questions are dropped, an empty catalog is an error.
func (l *QuestionLoader) Load(path string) (standup.Questions, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = l.fs.ReadFile(defaultQuestionsPath)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read questions: %w", err)
	}

	var catalog QuestionCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unable to parse questions: %w", err)
	}

	var questions standup.Questions
	for _, q := range catalog.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, errors.ErrEmptyQuestions
	}
	return questions, nil
}
