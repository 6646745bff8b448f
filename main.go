/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Snow-11y/FPSFlux-sub005/engine"
	"github.com/Snow-11y/FPSFlux-sub005/testbed"
)

func main() {
	app := testbed.NewTestApp(240)
	app.Wire()

	eng, err := engine.New(app.App)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		eng.Stop()
	}()

	if err := eng.Run(); err != nil {
		panic(err)
	}
}
