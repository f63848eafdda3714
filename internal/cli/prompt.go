package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chatpanel/internal/backend"
	"chatpanel/internal/config"
	"chatpanel/internal/logging"
)

// promptClient builds a backend client from the resolved config.
func promptClient() (*backend.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(nil, cfg.LogLevel)
	return backend.NewClient(cfg.BackendURL, logging.Sub(log, "backend")), nil
}

func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage prompts on the bot backend",
	}
	cmd.AddCommand(
		newPromptGetCommand(),
		newPromptSaveCommand(),
		newPromptListCommand(),
		newPromptCreateCommand(),
		newPromptDeleteCommand(),
	)
	return cmd
}

func newPromptGetCommand() *cobra.Command {
	var promptType string
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a prompt and print it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := promptClient()
			if err != nil {
				return err
			}
			text, err := client.GetPrompt(cmd.Context(), promptType, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&promptType, "type", "core", "Prompt type (core, main or subprompt)")
	return cmd
}

func newPromptSaveCommand() *cobra.Command {
	var promptType, file string
	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save prompt content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			client, err := promptClient()
			if err != nil {
				return err
			}
			return client.SavePrompt(cmd.Context(), promptType, args[0], string(data))
		},
	}
	cmd.Flags().StringVar(&promptType, "type", "core", "Prompt type (core, main or subprompt)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file instead of stdin")
	return cmd
}

func newPromptListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subprompt names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := promptClient()
			if err != nil {
				return err
			}
			names, err := client.ListSubprompts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		},
	}
}

func newPromptCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty subprompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := promptClient()
			if err != nil {
				return err
			}
			return client.CreateSubprompt(cmd.Context(), args[0])
		},
	}
}

func newPromptDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a subprompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := promptClient()
			if err != nil {
				return err
			}
			return client.DeleteSubprompt(cmd.Context(), args[0])
		},
	}
}
