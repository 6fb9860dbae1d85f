package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"grandlucky-quiz-service/internal/config"
	"grandlucky-quiz-service/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewImportCmd loads rounds and questions from a YAML file into the configured store.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert rounds and questions from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with rounds and questions")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// contentFile is the import document. Choices may be written as a YAML
// list or as the raw string stored upstream.
type contentFile struct {
	Rounds    []domain.Round   `yaml:"rounds"`
	Questions []importQuestion `yaml:"questions"`
}

type importQuestion struct {
	ID           string    `yaml:"id"`
	Lang         string    `yaml:"lang"`
	Topic        string    `yaml:"topic"`
	Prompt       string    `yaml:"prompt"`
	Choices      yaml.Node `yaml:"choices"`
	CorrectIndex string    `yaml:"correctIndex"`
	IsActive     *bool     `yaml:"isActive"`
}

func runImport(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg)
	if cfg.Postgres.URL == "" && cfg.SQLite.Path == "" {
		return fmt.Errorf("import needs postgres.url or sqlite.path configured")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	rounds, questions, err := parseContent(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, r := range rounds {
		if err := store.UpsertRound(ctx, r); err != nil {
			return err
		}
	}
	if err := store.UpsertQuestions(ctx, questions); err != nil {
		return err
	}
	logger.Info("content imported", "rounds", len(rounds), "questions", len(questions))
	return nil
}

func parseContent(data []byte) ([]domain.Round, []domain.Question, error) {
	var doc contentFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	for i, r := range doc.Rounds {
		if r.ID == "" || r.Lang == "" {
			return nil, nil, fmt.Errorf("round %d: id and lang are required", i)
		}
		if r.Status == "" {
			doc.Rounds[i].Status = domain.RoundOpen
		}
		doc.Rounds[i].StartAt = r.StartAt.UTC()
		doc.Rounds[i].DeadlineAt = r.DeadlineAt.UTC()
	}

	questions := make([]domain.Question, 0, len(doc.Questions))
	for i, q := range doc.Questions {
		if q.ID == "" || q.Lang == "" {
			return nil, nil, fmt.Errorf("question %d: id and lang are required", i)
		}
		choices, err := choicesText(q.Choices)
		if err != nil {
			return nil, nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		active := true
		if q.IsActive != nil {
			active = *q.IsActive
		}
		questions = append(questions, domain.Question{
			ID:           q.ID,
			Lang:         q.Lang,
			Topic:        q.Topic,
			Prompt:       q.Prompt,
			Choices:      choices,
			CorrectIndex: q.CorrectIndex,
			IsActive:     active,
		})
	}
	return doc.Rounds, questions, nil
}

func choicesText(node yaml.Node) (string, error) {
	switch node.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		return node.Value, nil
	case yaml.SequenceNode:
		var list []any
		if err := node.Decode(&list); err != nil {
			return "", err
		}
		out, err := json.Marshal(list)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("choices must be a list or a string")
	}
}
