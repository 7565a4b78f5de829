package main

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestCommonFlags(t *testing.T) {
	flags := commonFlags()

	stringFlag := func(name string) *cli.StringFlag {
		for _, flag := range flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
				return f
			}
		}
		return nil
	}

	t.Run("db is required", func(t *testing.T) {
		f := stringFlag("db")
		require.NotNil(t, f)
		assert.True(t, f.Required)
		assert.Contains(t, f.Aliases, "d")
	})

	t.Run("ai-host has default value", func(t *testing.T) {
		f := stringFlag("ai-host")
		require.NotNil(t, f)
		assert.Equal(t, "https://api.openai.com/v1", f.Value)
	})

	t.Run("ai-token reads OPENAI_API_KEY", func(t *testing.T) {
		f := stringFlag("ai-token")
		require.NotNil(t, f)
		assert.Contains(t, f.EnvVars, "OPENAI_API_KEY")
	})

	t.Run("reddit credentials read env vars", func(t *testing.T) {
		id := stringFlag("reddit-id")
		require.NotNil(t, id)
		assert.Contains(t, id.EnvVars, "REDDIT_CLIENT_ID")

		secret := stringFlag("reddit-secret")
		require.NotNil(t, secret)
		assert.Contains(t, secret.EnvVars, "REDDIT_CLIENT_SECRET")
	})

	t.Run("model flags have defaults", func(t *testing.T) {
		embedding := stringFlag("embedding-model")
		require.NotNil(t, embedding)
		assert.Equal(t, "text-embedding-3-small", embedding.Value)

		analysis := stringFlag("analysis-model")
		require.NotNil(t, analysis)
		assert.Equal(t, "gpt-4o-mini", analysis.Value)
	})
}

func TestCommandValidation(t *testing.T) {
	app := &cli.App{
		Name: "threadscout",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "channel",
						Required: true,
					},
				),
			},
			{
				Name:   "search",
				Action: searchCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "query",
						Required: true,
					},
				),
			},
		},
	}

	t.Run("ingest requires db", func(t *testing.T) {
		err := app.Run([]string{"threadscout", "ingest", "--channel", "startups"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("ingest requires channel", func(t *testing.T) {
		err := app.Run([]string{"threadscout", "ingest", "--db", "/tmp/test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel")
	})

	t.Run("search requires query", func(t *testing.T) {
		err := app.Run([]string{"threadscout", "search", "--db", "/tmp/test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query")
	})
}

func TestReembedCommandFlags(t *testing.T) {
	app := &cli.App{
		Name: "threadscout",
		Commands: []*cli.Command{
			{
				Name:   "reembed",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 100,
					},
				},
			},
		},
	}

	t.Run("embedding-model is required", func(t *testing.T) {
		err := app.Run([]string{"threadscout", "reembed", "--db", "/tmp/test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("db is required", func(t *testing.T) {
		err := app.Run([]string{"threadscout", "reembed", "--embedding-model", "test-model"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db")
	})
}

func TestSetup(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setup,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, input := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(input, func(t *testing.T) {
				err := newApp().Run([]string{"test", "--log-level", input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
		assert.Contains(t, err.Error(), "verbose")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		app := newApp()
		app.Action = func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}
		err := app.Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}
