package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"trackbot/internal/app"
)

func main() {
	var (
		cfgPath string
		mode    string
		number  string
		user    string
		force   bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.StringVar(&mode, "mode", "", "one-shot mode: check|add|delete|history (empty runs the bot)")
	flag.StringVar(&number, "number", "", "tracking number for add/delete/history")
	flag.StringVar(&user, "user", "", "chat id the one-shot mode acts for (default: admin chat)")
	flag.BoolVar(&force, "force", false, "report all packages in check mode, changed or not")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if mode != "" {
		changed, err := a.RunOnce(ctx, app.OneShot{
			Mode:   mode,
			Number: number,
			User:   user,
			Force:  force,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		fmt.Printf("changed=%t\n", changed)
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-a.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx)

	if err := a.Err(); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
