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

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"weread-agent/internal/app/models"
	"weread-agent/internal/app/services"
	"weread-agent/internal/pkg/code"
	"weread-agent/internal/pkg/logger"
	"weread-agent/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("weread-search", flag.ContinueOnError)
	configPath := fs.String("config", "", "配置文件路径")
	verbose := fs.Bool("v", false, "输出调试日志")
	all := fs.Bool("all", false, "打印每一次中间结果，默认只打印最终结果")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: weread-search [-config path] [-all] [-v] <query...>")
		return 2
	}

	if err := config.Init(*configPath); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	if _, err := logger.Init(logger.Options{Level: level}); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var last models.MergedView
	var rendered bool
	onUpdate := func(view models.MergedView) {
		last = view
		if *all || view.Final {
			printView(out, view)
			rendered = view.Final
		}
	}

	err := services.NewPollerFromConfig().Run(ctx, query, onUpdate, nil)
	switch {
	case errors.Is(err, services.ErrCancelled):
		color.New(color.FgYellow).Fprintln(os.Stderr, "cancelled")
		if !rendered && last.AnswerText != "" {
			printView(out, last)
		}
		return 1
	case err != nil:
		log.WithError(err).Debug("search failed")
		color.New(color.FgRed).Fprintf(os.Stderr, "%s (%s)\n", code.MsgSearchFailed, services.KindOf(err))
		return 1
	}
	return 0
}

func printView(out io.Writer, view models.MergedView) {
	title := color.New(color.FgCyan, color.Bold)
	if view.Answered {
		fmt.Fprintln(out, view.AnswerText)
	} else {
		color.New(color.Faint).Fprintln(out, view.AnswerText)
	}
	if len(view.Citations) == 0 {
		return
	}
	fmt.Fprintln(out)
	title.Fprintln(out, "References")
	for i, c := range view.Citations {
		label := c.Label
		if label == "" {
			label = c.Reference
		}
		fmt.Fprintf(out, "[%d] %s\n", i+1, label)
		if c.Excerpt != "" {
			color.New(color.Faint).Fprintf(out, "    %s\n", c.Excerpt)
		}
		if c.TargetURL != "" {
			color.New(color.FgBlue, color.Underline).Fprintf(out, "    %s\n", c.TargetURL)
		}
	}
	fmt.Fprintln(out)
}
