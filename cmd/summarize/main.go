// File: cmd/summarize/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pdf-summarizer/internal/config"
	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/model"
	"pdf-summarizer/internal/domain/ports/adapter"
	"pdf-summarizer/internal/infra/adapters/pdfcheck"
	"pdf-summarizer/internal/infra/adapters/resolver"
	"pdf-summarizer/internal/infra/adapters/summarizer"
	"pdf-summarizer/internal/infra/i18n"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/infra/sched"
	"pdf-summarizer/internal/usecase"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	file := flag.String("file", "", "local PDF to summarize")
	pdfURL := flag.String("url", "", "URL of a PDF to summarize")
	resolve := flag.Bool("resolve", false, "treat -url as a landing page and follow its PDF link")
	out := flag.String("out", "", "write the transcript to this file or directory")
	flag.Parse()

	if (*file == "") == (*pdfURL == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -url is required")
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Log, cfg.Runtime.Dev)
	msgs := i18n.MustDefault(cfg.Web.Lang)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sub model.Submission
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", *file, err)
			return 1
		}
		sub = sub.WithFile(filepath.Base(*file), data)
	} else {
		target := *pdfURL
		if *resolve {
			target, err = resolver.New(cfg.API.Timeout, logger).Resolve(ctx, target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "resolve %s: %v\n", *pdfURL, err)
				return 1
			}
		}
		sub = sub.WithURL(target)
	}

	api, err := summarizer.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "summarizer client: %v\n", err)
		return 1
	}
	var inspector adapter.PDFInspector
	if cfg.Upload.ValidatePDF {
		inspector = pdfcheck.NewInspector()
	}
	tracker := usecase.NewTrackerUseCase(api, inspector, msgs, usecase.TrackerConfig{
		Poll: sched.PollerConfig{
			Interval:    cfg.Poll.Interval,
			MaxDuration: cfg.Poll.MaxDuration,
			TickTimeout: cfg.Poll.TickTimeout,
		},
		MaxUploadBytes: cfg.Upload.MaxBytes,
	}, logger)
	defer tracker.Close()

	job, err := tracker.Submit(ctx, sub)
	if err != nil {
		var se *domain.SubmitError
		if errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, se.Message)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	fmt.Fprintf(os.Stderr, "%s (%s)\n", msgs.T("job_title", 1, job.Filename), job.ID)

	job, err = tracker.Wait(ctx, job.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "interrupted: %v\n", err)
		return 130
	}
	if job.Status != model.JobStatusDone {
		fmt.Fprintf(os.Stderr, "%s %s\n", msgs.T("label_error"), job.Error)
		return 1
	}

	tr, err := tracker.Download(job.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *out == "" {
		fmt.Println(tr.Body)
		return 0
	}
	dest := *out
	if st, err := os.Stat(dest); err == nil && st.IsDir() {
		dest = filepath.Join(dest, tr.Filename)
	}
	if err := os.WriteFile(dest, []byte(tr.Body), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", dest, err)
		return 1
	}
	fmt.Fprintln(os.Stderr, dest)
	return 0
}
