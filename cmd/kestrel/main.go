// Command kestrel is the UCI chess engine binary.
package main

import (
	"github.com/kestrelchess/kestrel/internal/engine"
	"github.com/kestrelchess/kestrel/internal/logx"
	"github.com/kestrelchess/kestrel/internal/storage"
	"github.com/kestrelchess/kestrel/internal/uci"
)

func main() {
	log := logx.NewLogger()

	pool := engine.NewPool(engine.DefaultOptions())
	handler := uci.New(pool, log)

	store, err := storage.Open()
	if err != nil {
		// The engine is fully functional without persistence.
		log.Warn().Err(err).Msg("persistent storage unavailable")
	} else {
		handler.SetStore(store)
		defer store.Close()
	}

	handler.Run()
}
