package main

// Score a local resume:
//   go run ./cmd/atsctl score resume.pdf --target-role "Backend Engineer" --jd jd.txt

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ats-backend/internal/cli"
	"ats-backend/internal/shared/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, config.Load(), os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "atsctl:", err)
		stop()
		os.Exit(1)
	}
}
