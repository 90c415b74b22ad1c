package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/birmacher/tutor-relay/relay"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Stream one answer to the terminal",
	Long: `Send a single prompt through the relay and print the answer as it
arrives. Ctrl-C stops the generation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		rl, err := newRelay(settings)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		frames, err := rl.Chat(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		out := cmd.OutOrStdout()
		for frame := range frames {
			if raw {
				fmt.Fprint(out, frame)
				continue
			}
			fmt.Fprint(out, relay.Payload(frame))
		}
		if !raw {
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	addUpstreamFlags(askCmd)
	askCmd.Flags().Bool("raw", false, "Print the event-stream frames instead of plain text")
}
