package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if p := a.session.Profile(); p != nil && p.Email != "" {
		s = p.Email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to deductsync CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	for {
		fmt.Printf("dsync %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: (l)ist, add, show, delete, charities, addcharity, editcharity, receipt, receipts, sync, pull, status, export, logout, exit")
			} else {
				fmt.Println("Available commands: login, exit")
			}

		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "add":
			a.addDonation(ctx)
		case "list", "l":
			a.list(ctx)
		case "show":
			a.show(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "charities":
			a.listCharities(ctx, args)
		case "addcharity":
			a.addCharity(ctx)
		case "editcharity":
			a.editCharity(ctx, args)
		case "delcharity":
			a.deleteCharity(ctx, args)
		case "receipt":
			a.attachReceipt(ctx, args)
		case "receipts":
			a.listReceipts(ctx, args)
		case "sync":
			a.syncNow(ctx)
		case "pull":
			a.pullNow(ctx)
		case "status":
			a.status(ctx)
		case "export":
			a.export(ctx, args)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
