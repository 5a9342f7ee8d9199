package main

import (
	"context"
	"log"

	_ "github.com/go-kivik/kivik/v4/couchdb"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/movesync/internal/app"
	"github.com/dmitrijs2005/movesync/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)

}
