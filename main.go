// Package main is the entry point of the application.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"github.com/ztrue/tracerr"

	"ragdesk/internal/config"
	"ragdesk/internal/llm/client"
	"ragdesk/internal/models"
	"ragdesk/internal/utils"
)

var (
	version   string
	optDebug  bool
	optServer string
)

func main() {
	initLogrus()

	if err := utils.LoadEnv(); err != nil {
		logrus.Warnf("failed to load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:    "ragdesk",
		Usage:   "Terminal client for a llama.cpp inference server with RAG administration",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Aliases:     []string{"s"},
				Usage:       "inference server base URL (overrides RAGDESK_SERVER)",
				Destination: &optServer,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Aliases:     []string{"d"},
				Usage:       "enable debug mode",
				Destination: &optDebug,
			},
		},
		Commands: []*cli.Command{
			settingsCommand(),
			connectionsCommand(),
			modelsCommand(),
			schemaCommand(),
			uploadCommand(),
			embeddingCommand(),
			chatCommand(),
			historyCommand(),
			keysCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if optDebug {
			logrus.Error(tracerr.SprintSourceColor(err, 0))
		} else {
			logrus.Error(err)
		}
		os.Exit(1)
	}
}

func initLogrus() {
	logrus.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		TimestampFormat: time.RFC3339,
	})
}

// withApp constructs the service container for one command invocation and
// tears it down afterwards.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *App) error) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		if optDebug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		app, err := NewApp(optServer)
		if err != nil {
			return tracerr.Wrap(err)
		}
		defer app.Shutdown()
		return fn(ctx, cmd, app)
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Inspect and edit the configuration record",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the current settings",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					return utils.Dump(app.Settings.Load())
				}),
			},
			{
				Name:      "set",
				Usage:     "set one setting and save the whole record",
				ArgsUsage: "<key> <value>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("usage: ragdesk settings set <key> <value>")
					}
					saved, err := app.Settings.SetKey(args[0], args[1])
					if err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("saved %s", app.Settings.Path())
					return utils.Dump(saved)
				}),
			},
			{
				Name:  "keys",
				Usage: "list the known setting keys with their help text",
				Action: func(_ context.Context, _ *cli.Command) error {
					for _, key := range config.Keys() {
						fmt.Printf("%-28s %s\n", key, config.Info[key])
					}
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "restore the built-in defaults",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					if err := app.Settings.Reset(); err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("settings reset to defaults at %s", app.Settings.Path())
					return nil
				}),
			},
			{
				Name:  "path",
				Usage: "print the settings file location",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					fmt.Println(app.Settings.Path())
					return nil
				}),
			},
		},
	}
}

func connectionsCommand() *cli.Command {
	var (
		host     string
		port     int
		dbName   string
		user     string
		password string
	)
	return &cli.Command{
		Name:  "connections",
		Usage: "Manage RAG database connection profiles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list saved profiles, marking the selected one",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					cfg := app.Settings.Load()
					lines := lo.Map(cfg.RagConnections, func(conn config.RagConnection, _ int) string {
						marker := "  "
						if conn.ConnectionName == cfg.SelectedRagConnectionName {
							marker = "* "
						}
						return fmt.Sprintf("%s%s (%s:%v/%s)", marker, conn.ConnectionName, conn.Host, conn.Port, conn.Name)
					})
					if len(lines) == 0 {
						fmt.Println("no saved connections")
						return nil
					}
					fmt.Println(strings.Join(lines, "\n"))
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "add a profile, or update the one with the same name",
				ArgsUsage: "<connection-name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: "localhost", Usage: "database host", Destination: &host},
					&cli.IntFlag{Name: "port", Value: 5432, Usage: "database port", Destination: &port},
					&cli.StringFlag{Name: "db", Value: "klave_rag", Usage: "database name", Destination: &dbName},
					&cli.StringFlag{Name: "user", Value: "postgres", Usage: "database user", Destination: &user},
					&cli.StringFlag{Name: "password", Usage: "database password", Destination: &password},
				},
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("usage: ragdesk connections add <connection-name>")
					}
					cfg, err := app.Settings.AddOrUpdateConnection(config.RagConnection{
						ConnectionName: name,
						Host:           host,
						Port:           float64(port),
						Name:           dbName,
						User:           user,
						Password:       password,
					})
					if err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("connection %q saved and selected (%d total)", name, len(cfg.RagConnections))
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "delete a profile by name",
				ArgsUsage: "<connection-name>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("usage: ragdesk connections remove <connection-name>")
					}
					if _, err := app.Settings.RemoveConnection(name); err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("connection %q removed", name)
					return nil
				}),
			},
			{
				Name:      "select",
				Usage:     "make a saved profile the active one",
				ArgsUsage: "<connection-name>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					name := cmd.Args().First()
					if name == "" {
						return fmt.Errorf("usage: ragdesk connections select <connection-name>")
					}
					if _, err := app.Settings.SelectConnection(name); err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("connection %q selected", name)
					return nil
				}),
			},
		},
	}
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List and switch the server's models",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the model files the server can load",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *App) error {
					models, err := app.Gateway.ListModels(ctx)
					if err != nil {
						return tracerr.Wrap(err)
					}
					for _, model := range models {
						fmt.Println(model)
					}
					return nil
				}),
			},
			{
				Name:      "use",
				Usage:     "ask the server to load a different model",
				ArgsUsage: "<model>",
				Action: withApp(func(ctx context.Context, cmd *cli.Command, app *App) error {
					model := cmd.Args().First()
					if model == "" {
						return fmt.Errorf("usage: ragdesk models use <model>")
					}
					if _, err := app.Gateway.ChangeModel(ctx, model); err != nil {
						return tracerr.Wrap(err)
					}
					return nil
				}),
			},
		},
	}
}

func schemaCommand() *cli.Command {
	run := func(action func(ctx context.Context, app *App, conn config.RagConnection) error) func(context.Context, *cli.Command) error {
		return withApp(func(ctx context.Context, _ *cli.Command, app *App) error {
			conn := config.SelectedRagConnection(app.Settings.Load())
			return action(ctx, app, conn)
		})
	}
	return &cli.Command{
		Name:  "schema",
		Usage: "Administer the RAG schema on the selected connection",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create the RAG schema",
				Action: run(func(ctx context.Context, app *App, conn config.RagConnection) error {
					_, err := app.Gateway.CreateSchema(ctx, conn)
					return tracerr.Wrap(err)
				}),
			},
			{
				Name:  "check",
				Usage: "check whether the RAG schema exists",
				Action: run(func(ctx context.Context, app *App, conn config.RagConnection) error {
					_, err := app.Gateway.SchemaExists(ctx, conn)
					return tracerr.Wrap(err)
				}),
			},
			{
				Name:  "drop",
				Usage: "drop the RAG schema",
				Action: run(func(ctx context.Context, app *App, conn config.RagConnection) error {
					_, err := app.Gateway.DropSchema(ctx, conn)
					return tracerr.Wrap(err)
				}),
			},
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Extract a document's text and submit it for chunking",
		ArgsUsage: "<file>",
		Action: withApp(func(ctx context.Context, cmd *cli.Command, app *App) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("usage: ragdesk upload <file>")
			}
			cfg := app.Settings.Load()
			if _, err := app.Documents.Upload(ctx, cfg, path); err != nil {
				return tracerr.Wrap(err)
			}
			return nil
		}),
	}
}

func embeddingCommand() *cli.Command {
	var (
		rule   string
		sample int
	)
	return &cli.Command{
		Name:  "embedding",
		Usage: "Compute the embedding vector of the last ingested chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rule", Value: "average", Usage: "aggregation rule: average or last", Destination: &rule},
			&cli.IntFlag{Name: "sample", Value: 300, Usage: "averaging window size", Destination: &sample},
		},
		Action: withApp(func(ctx context.Context, _ *cli.Command, app *App) error {
			vector, err := app.Gateway.ChunkEmbedding(ctx, rule, int(sample))
			if err != nil {
				return tracerr.Wrap(err)
			}
			return utils.Dump(vector)
		}),
	}
}

func chatCommand() *cli.Command {
	var (
		model        string
		conversation string
	)
	return &cli.Command{
		Name:      "chat",
		Usage:     "Send one prompt to the inference server",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model to chat with", Destination: &model},
			&cli.StringFlag{Name: "conversation", Aliases: []string{"c"}, Usage: "conversation ID to continue", Destination: &conversation},
		},
		Action: withApp(func(ctx context.Context, cmd *cli.Command, app *App) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("usage: ragdesk chat <prompt>")
			}
			prompt := strings.Join(cmd.Args().Slice(), " ")

			reply, err := runChatTurn(ctx, app, model, conversation, prompt)
			if err != nil {
				return tracerr.Wrap(err)
			}
			fmt.Println(reply)
			return nil
		}),
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse local conversation history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list conversations grouped by recency",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					groups, err := app.History.Grouped(time.Now())
					if err != nil {
						return tracerr.Wrap(err)
					}
					for _, line := range historyListing(groups) {
						fmt.Println(line)
					}
					return nil
				}),
			},
			{
				Name:      "rename",
				Usage:     "rename a conversation",
				ArgsUsage: "<id> <name>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("usage: ragdesk history rename <id> <name>")
					}
					return tracerr.Wrap(app.History.Rename(args[0], args[1]))
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a conversation and its messages",
				ArgsUsage: "<id>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: ragdesk history delete <id>")
					}
					return tracerr.Wrap(app.History.Delete(id))
				}),
			},
			{
				Name:      "export",
				Usage:     "print a conversation with its messages as JSON",
				ArgsUsage: "<id>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: ragdesk history export <id>")
					}
					data, err := app.History.Export(id)
					if err != nil {
						return tracerr.Wrap(err)
					}
					fmt.Println(string(data))
					return nil
				}),
			},
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Manage server API keys in the OS keyring",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "store an API key for a server",
				ArgsUsage: "<server> <api-key>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("usage: ragdesk keys set <server> <api-key>")
					}
					if err := app.Keyring.StoreAPIKey(args[0], []byte(args[1])); err != nil {
						return tracerr.Wrap(err)
					}
					logrus.Infof("API key stored for %s", args[0])
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "remove a server's API key",
				ArgsUsage: "<server>",
				Action: withApp(func(_ context.Context, cmd *cli.Command, app *App) error {
					server := cmd.Args().First()
					if server == "" {
						return fmt.Errorf("usage: ragdesk keys delete <server>")
					}
					return tracerr.Wrap(app.Keyring.DeleteAPIKey(server))
				}),
			},
			{
				Name:  "list",
				Usage: "list servers with a stored API key",
				Action: withApp(func(_ context.Context, _ *cli.Command, app *App) error {
					servers, err := app.Keyring.ListAPIKeys()
					if err != nil {
						return tracerr.Wrap(err)
					}
					for _, server := range servers {
						fmt.Println(server)
					}
					return nil
				}),
			},
		},
	}
}

// runChatTurn executes one exchange and records both sides in the local
// store. A missing conversation ID starts a new conversation named after
// the prompt's first words.
func runChatTurn(ctx context.Context, app *App, model, conversationID, prompt string) (string, error) {
	chat, err := app.NewChatClient(ctx, model)
	if err != nil {
		return "", err
	}

	cfg := app.Settings.Load()
	history, err := loadHistoryTurns(app, conversationID)
	if err != nil {
		return "", err
	}

	reply, err := chat.Send(ctx, cfg.SystemMessage, history, prompt)
	if err != nil {
		return "", err
	}

	if conversationID == "" {
		conv, err := app.History.Create(conversationTitle(prompt))
		if err != nil {
			return "", err
		}
		conversationID = conv.ID
		logrus.Infof("started conversation %s", conversationID)
	}
	if err := app.History.AppendMessage(conversationID, "user", prompt); err != nil {
		return "", err
	}
	if err := app.History.AppendMessage(conversationID, "assistant", reply); err != nil {
		return "", err
	}
	return reply, nil
}

func loadHistoryTurns(app *App, conversationID string) ([]client.ChatTurn, error) {
	if conversationID == "" {
		return nil, nil
	}
	msgs, err := app.History.Messages(conversationID)
	if err != nil {
		return nil, err
	}
	turns := make([]client.ChatTurn, 0, len(msgs))
	for _, msg := range msgs {
		turns = append(turns, client.ChatTurn{Role: msg.Role, Content: msg.Content})
	}
	return turns, nil
}

// historyListing renders grouped conversations for the terminal. The
// newest bucket carries no title and gets none here either.
func historyListing(groups []models.ConversationGroup) []string {
	var lines []string
	for _, group := range groups {
		if group.Title != "" {
			lines = append(lines, group.Title)
		}
		for _, conv := range group.Conversations {
			lines = append(lines, fmt.Sprintf("  %s  %s", conv.ID, conv.Name))
		}
	}
	return lines
}

func conversationTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
