package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"hybridchat/src/chat"
	"hybridchat/src/logger"
	"hybridchat/src/prompting"
	"hybridchat/src/vector"
)

var chatTemplate string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the interactive travel assistant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.Logger

		emb, err := newEmbedClient(ctx)
		if err != nil {
			return err
		}

		vec, err := vector.NewClient(cfg.Pinecone)
		if err != nil {
			return err
		}

		model, err := prompting.NewChatModel(ctx, cfg.Chat)
		if err != nil {
			return err
		}

		fetcher, stop := newGraphRunner(log)
		defer stop()

		template := chatTemplate
		if template == "" {
			template = cfg.Chat.Template
		}

		svc := chat.NewService(emb, vec, fetcher, model, log)
		return svc.Interactive(ctx, os.Stdin, os.Stdout, template)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatTemplate, "template", "", "Prompt template (concise or chain_of_thought)")
	rootCmd.AddCommand(chatCmd)
}
