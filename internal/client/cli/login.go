package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mkalvans/deductsync/internal/common"
)

func (a *App) login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	if err := a.lifecycle.Login(ctx, username, string(password)); err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Println("Logged in.")

	// Hydrate the cache and flush anything queued from a previous session.
	if err := a.pull.RefreshAll(ctx); err != nil {
		log.Println(err.Error())
	}
	a.sync.TriggerDrain()
}

func (a *App) logout(ctx context.Context) {
	if err := a.lifecycle.Logout(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Logged out.")
}
