package cli

import (
	"fmt"

	"getlowlevel-service/internal/infra/memory"
	pgstore "getlowlevel-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewImportQuestionsCmd loads a scraped question bank JSON file into Postgres.
func NewImportQuestionsCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Upsert a question bank JSON file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if file == "" {
				file = cfg.Questions.File
			}
			if file == "" {
				return fmt.Errorf("no question file given (--file or questions.file)")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg, log); err != nil {
				return err
			}

			questions, err := memory.NewFileQuestionLoader(file).LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			db := pgstore.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			n, err := pgstore.ImportQuestions(cmd.Context(), db, questions)
			if err != nil {
				return err
			}
			log.Info("questions imported", "count", n, "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the question bank JSON array")
	return cmd
}
