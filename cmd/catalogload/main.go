// Command catalogload loads a JSONL dump of model-hub metadata into the
// relational model catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	// Every storage backend is compiled in; the configuration picks one.
	_ "modelcatalog/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error(fmt.Sprintf("%+v", err))
		stop()
		os.Exit(1)
	}
}
