package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

func (a *App) syncNow(ctx context.Context) {
	if err := a.sync.Drain(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Sync complete.")
}

func (a *App) pullNow(ctx context.Context) {
	if err := a.pull.RefreshAll(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Pull complete.")
}

func (a *App) status(ctx context.Context) {
	pending, err := a.sync.PendingCount(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Mode: %s\n", a.Mode)
	if p := a.session.Profile(); p != nil {
		fmt.Printf("User: %s\n", p.Email)
	}
	fmt.Printf("Pending donations: %d\n", pending)
}

func (a *App) export(ctx context.Context, args []string) {
	year := time.Now().Year()
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("Usage: export [year]")
			return
		}
		year = y
	}

	data, err := a.api.ExportCSV(ctx, year)
	if err != nil {
		log.Println(err.Error())
		return
	}

	name := fmt.Sprintf("donations-%d.csv", year)
	if err := os.WriteFile(name, data, 0o600); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Exported %d bytes to %s\n", len(data), name)
}
