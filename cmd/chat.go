package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KaramelBytes/geoportal/internal/ai"
	"github.com/spf13/cobra"
)

var (
	chatModel string
	chatHost  string
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the local model runtime a question and stream the answer",
	Example: `  geoportal chat "Which projection suits East Africa?"
  geoportal chat --model llama3 "Summarize the rivers layer"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		host, model := c.OllamaHost, c.OllamaModel
		if chatHost != "" {
			host = chatHost
		}
		if chatModel != "" {
			model = chatModel
		}
		client := ai.NewOllamaClient(host, model, time.Duration(c.HTTPTimeoutSec)*time.Second)
		err = streamChat(cmd.Context(), cmd.OutOrStdout(), client, strings.Join(args, " "))
		var nf *ai.ModelNotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("%w (try: ollama pull %s)", err, model)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model name (overrides config)")
	chatCmd.Flags().StringVar(&chatHost, "host", "", "runtime host URL (overrides config)")
}

func streamChat(ctx context.Context, w io.Writer, g ai.Generator, prompt string) error {
	s, err := g.GenerateStream(ctx, prompt)
	if err != nil {
		return err
	}
	defer s.Close()
	for s.Next() {
		if _, err := io.WriteString(w, s.Token()); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return s.Err()
}
