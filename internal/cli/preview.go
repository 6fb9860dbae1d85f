package cli

import (
	"context"
	"encoding/json"
	"io"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/config"
	"grandlucky-quiz-service/internal/domain"
	"github.com/spf13/cobra"
)

type previewOptions struct {
	lang     string
	user     string
	round    string
	salt     string
	n        int
	balanced bool
}

// NewPreviewCmd prints the questions a user would receive, for checking draws offline.
func NewPreviewCmd(configPath *string) *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the prepared questions for a user and round as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), cmd.OutOrStdout(), *configPath, opts)
		},
	}
	cmd.Flags().StringVar(&opts.lang, "lang", "hu", "question language")
	cmd.Flags().StringVar(&opts.user, "user", "", "username the draw is personalized for")
	cmd.Flags().StringVar(&opts.round, "round", "", "round id")
	cmd.Flags().StringVar(&opts.salt, "salt", "", "optional salt for tie retries")
	cmd.Flags().IntVar(&opts.n, "n", 0, "number of questions (0 uses quiz.questionCount)")
	cmd.Flags().BoolVar(&opts.balanced, "balanced", false, "spread questions across topics")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("round")
	return cmd
}

func runPreview(ctx context.Context, out io.Writer, configPath string, opts previewOptions) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	selector := app.NewQuestionSelector(store, app.DefaultFallbackBank(), selectorConfig(cfg), logger)
	return writePreview(ctx, out, selector, opts)
}

func writePreview(ctx context.Context, out io.Writer, selector *app.QuestionSelector, opts previewOptions) error {
	req := app.SelectRequest{
		Lang:     opts.lang,
		Username: opts.user,
		RoundID:  opts.round,
		Salt:     opts.salt,
		Count:    opts.n,
	}
	var questions []domain.PreparedQuestion
	if opts.balanced {
		questions = selector.SelectBalanced(ctx, req)
	} else {
		questions = selector.Select(ctx, req)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(questions)
}
