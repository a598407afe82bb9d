package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/epoch/engine"
)

func runEngine(g *engine.Game) error {
	e, err := engine.New(g, nil)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return errors.Join(err, e.Shutdown())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			e.Stop()
		}
	}()

	runErr := e.Run()
	return errors.Join(runErr, e.Shutdown())
}
