package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"postcreator/internal/infra"
	"postcreator/internal/poller"
	"postcreator/internal/present"
	"postcreator/internal/providers/postapi"
	"postcreator/internal/tui"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs only go to a file when asked.
	var sink io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		sink = f
	}
	logger := infra.NewLoggerTo(cfg.AppEnv, sink).With().Str("cmd", "postui").Logger()

	client, err := postapi.NewClient(postapi.Options{
		BaseURL:        cfg.APIBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.APITimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "api client: %v\n", err)
		os.Exit(1)
	}

	opts := tui.Options{
		API:            client,
		Policy:         poller.PolicyFromConfig(cfg),
		Logger:         &logger,
		RequestTimeout: cfg.APITimeout,
	}
	if cb := (present.SystemClipboard{}); cb.Available() {
		opts.Clipboard = cb
	} else {
		logger.Info().Msg("no system clipboard, copy disabled")
	}

	final, err := tea.NewProgram(tui.New(opts), tea.WithAltScreen()).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "postui: %v\n", err)
		os.Exit(1)
	}
	// Leave the last generated post on the restored terminal.
	if m, ok := final.(tui.Model); ok {
		if err := present.RenderText(os.Stdout, m.State().Result); err != nil {
			os.Exit(1)
		}
	}
}
