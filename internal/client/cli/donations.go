package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

func (a *App) addDonation(ctx context.Context) {
	date, err := GetSimpleText(a.reader, "Date (YYYY-MM-DD, empty = today)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		log.Println("invalid date:", err.Error())
		return
	}

	amount, err := GetAmount(a.reader, "Amount", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	category, err := GetSimpleText(a.reader, "Category (money/items/mileage, empty = money)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if category == "" {
		category = "money"
	}

	charityName, err := GetSimpleText(a.reader, "Charity name", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	charityID := ""
	if matches, serr := a.charities.Search(ctx, charityName); serr == nil && len(matches) > 0 {
		charityID = matches[0].ID
		charityName = matches[0].Name
	}

	notes, err := GetSimpleText(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	d, err := a.donations.Create(ctx, day.Year(), date, category, amount, charityID, charityName, notes)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Added donation %s (%s)\n", d.ID, d.SyncStatus)
}

func (a *App) list(ctx context.Context) {
	items, err := a.donations.List(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(items) == 0 {
		fmt.Println("No donations.")
		return
	}
	for _, d := range items {
		marker := " "
		if d.SyncStatus != "synced" {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  %-8s  %8.2f  %s\n", marker, d.ID, d.Date, d.Category, d.Amount, d.CharityName)
	}
}

func (a *App) show(ctx context.Context, args []string) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		var err error
		id, err = GetSimpleText(a.reader, "Donation id", os.Stdout)
		if err != nil {
			log.Println(err.Error())
			return
		}
	}

	d, err := a.donations.Get(ctx, id)
	if err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Printf("ID:       %s\n", d.ID)
	fmt.Printf("Date:     %s (%s)\n", d.Date, strconv.Itoa(d.Year))
	fmt.Printf("Category: %s\n", d.Category)
	fmt.Printf("Amount:   %.2f\n", d.Amount)
	fmt.Printf("Charity:  %s\n", d.CharityName)
	if d.Notes != "" {
		fmt.Printf("Notes:    %s\n", d.Notes)
	}
	fmt.Printf("Status:   %s\n", d.SyncStatus)

	recs, err := a.receipts.List(ctx, d.ID)
	if err != nil {
		log.Println(err.Error())
		return
	}
	for _, r := range recs {
		state := "confirmed"
		if !r.Confirmed() {
			state = "uploading"
		}
		fmt.Printf("Receipt:  %s  %s (%s)\n", r.ID, r.FileName, state)
	}
}

func (a *App) delete(ctx context.Context, args []string) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		var err error
		id, err = GetSimpleText(a.reader, "Donation id", os.Stdout)
		if err != nil {
			log.Println(err.Error())
			return
		}
	}

	if err := a.donations.Delete(ctx, id); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Deleted (queued for sync).")
}
