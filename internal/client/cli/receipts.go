package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) attachReceipt(ctx context.Context, args []string) {
	var donationID, path string
	var err error

	if len(args) >= 2 {
		donationID, path = args[0], args[1]
	} else {
		donationID, err = GetSimpleText(a.reader, "Donation id", os.Stdout)
		if err != nil {
			log.Println(err.Error())
			return
		}
		path, err = GetSimpleText(a.reader, "Receipt file path", os.Stdout)
		if err != nil {
			log.Println(err.Error())
			return
		}
	}

	rec, err := a.receipts.Upload(ctx, donationID, path)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if rec.Confirmed() {
		fmt.Printf("Receipt %s uploaded.\n", rec.ID)
	} else {
		fmt.Printf("Receipt %s uploaded; confirmation queued until the donation syncs.\n", rec.ID)
	}
}

func (a *App) listReceipts(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: receipts <donation-id>")
		return
	}
	recs, err := a.receipts.List(ctx, args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(recs) == 0 {
		fmt.Println("No receipts.")
		return
	}
	for _, r := range recs {
		url := ""
		if r.Confirmed() {
			if u, uerr := a.receipts.DownloadURL(ctx, r.ID); uerr == nil {
				url = u
			}
		}
		fmt.Printf("%s  %-25s %8d  %s\n", r.ID, r.FileName, r.Size, url)
	}
}
