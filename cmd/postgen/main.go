package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"postcreator/internal/domain"
	"postcreator/internal/form"
	"postcreator/internal/infra"
	"postcreator/internal/poller"
	"postcreator/internal/present"
	"postcreator/internal/providers/postapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("postgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		topicFlag    = fs.String("topic", "", "Topic of the post (required)")
		industryFlag = fs.String("industry", domain.DefaultIndustry, "Industry: "+strings.Join(domain.Industries, ", "))
		toneFlag     = fs.String("tone", domain.DefaultTone, "Tone: "+strings.Join(domain.Tones, ", "))
		audienceFlag = fs.String("audience", domain.DefaultAudience, "Target audience: "+strings.Join(domain.Audiences, ", "))
		apiFlag      = fs.String("api", "", "Base URL of the generation API (overrides POST_API_URL)")
		syncFlag     = fs.Bool("sync", false, "Use the synchronous endpoint instead of job polling")
		healthFlag   = fs.Bool("health", false, "Only check that the generation API is healthy")
		copyFlag     = fs.Bool("copy", false, "Copy the generated post to the system clipboard")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if v := strings.TrimSpace(*apiFlag); v != "" {
		cfg.APIBaseURL = v
	}
	logger := infra.NewLoggerTo(cfg.AppEnv, stderr).With().Str("cmd", "postgen").Logger()

	client, err := postapi.NewClient(postapi.Options{
		BaseURL:        cfg.APIBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.APITimeout,
	})
	if err != nil {
		fmt.Fprintf(stderr, "api client: %v\n", err)
		return 1
	}

	if *healthFlag {
		h, err := client.Health(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "health check failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%s %s (%s)\n", h.Status, h.Service, client.BaseURL())
		return 0
	}

	ctl := form.New()
	ctl.SetTopic(*topicFlag)
	ctl.SetIndustry(*industryFlag)
	ctl.SetTone(*toneFlag)
	ctl.SetAudience(*audienceFlag)

	var result *domain.GenerationResult
	if *syncFlag {
		result, err = generateSync(ctx, ctl, client)
	} else {
		result, err = generate(ctx, ctl, client, poller.PolicyFromConfig(cfg), &logger)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "canceled")
			return 130
		}
		msg := ctl.State().Error
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintln(stderr, msg)
		logger.Debug().Err(err).Msg("generation failed")
		return 1
	}

	if err := present.RenderText(stdout, result); err != nil {
		fmt.Fprintf(stderr, "write post: %v\n", err)
		return 1
	}
	if *copyFlag {
		copyPost(stderr, present.SystemClipboard{}, result)
	}
	return 0
}

// generate submits a job and blocks until it finishes or ctx is canceled.
func generate(ctx context.Context, ctl *form.Controller, client *postapi.Client, policy poller.Policy, logger *infra.Logger) (*domain.GenerationResult, error) {
	jobID, err := ctl.Submit(ctx, client)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("job_id", jobID).Msg("generation started")

	fetch := func(ctx context.Context) (*domain.Job, error) {
		return client.JobStatus(ctx, jobID)
	}
	observe := func(job *domain.Job) {
		ctl.Observe(jobID, job)
		logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).Str("progress", job.Progress).Msg("status")
	}
	if _, err := poller.Run(ctx, policy, fetch, observe); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ctl.Abort(jobID, err)
		return nil, err
	}

	st := ctl.State()
	if st.Error != "" {
		return nil, errors.New(st.Error)
	}
	if st.Result == nil {
		return nil, fmt.Errorf("postgen: %w", domain.ErrMissingResult)
	}
	return st.Result, nil
}

func generateSync(ctx context.Context, ctl *form.Controller, client *postapi.Client) (*domain.GenerationResult, error) {
	req, err := ctl.Prepare()
	if err != nil {
		return nil, err
	}
	result, err := client.GenerateSync(ctx, req)
	if err != nil {
		ctl.Rejected(err)
		return nil, err
	}
	return result, nil
}

func copyPost(stderr io.Writer, cb present.SystemClipboard, result *domain.GenerationResult) {
	if !cb.Available() {
		fmt.Fprintln(stderr, "no system clipboard available, skipping copy")
		return
	}
	if err := present.Copy(cb, result); err != nil {
		fmt.Fprintf(stderr, "copy failed: %v\n", err)
		return
	}
	fmt.Fprintln(stderr, "copied to clipboard")
}
