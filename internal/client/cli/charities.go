package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
)

func (a *App) listCharities(ctx context.Context, args []string) {
	var (
		items []models.Charity
		err   error
	)
	if len(args) > 0 {
		items, err = a.charities.Search(ctx, strings.Join(args, " "))
	} else {
		items, err = a.charities.List(ctx)
	}
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(items) == 0 {
		fmt.Println("No charities.")
		return
	}
	for _, c := range items {
		fmt.Printf("%s  %-30s  %s  %s %s\n", c.ID, c.Name, c.EIN, c.City, c.State)
	}
}

func (a *App) addCharity(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Charity name", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	ein, err := GetSimpleText(a.reader, "EIN (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	if ein != "" {
		if c, lerr := a.charities.LookupByEIN(ctx, ein); lerr == nil {
			fmt.Printf("Found by EIN: %s (%s)\n", c.Name, c.ID)
			return
		}
	}

	c := &models.Charity{Name: name, EIN: ein}
	if err := a.charities.Create(ctx, c); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Created charity %s\n", c.ID)
}

func (a *App) editCharity(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: editcharity <id>")
		return
	}

	c, err := a.charities.Get(ctx, args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}

	name, err := GetSimpleText(a.reader, fmt.Sprintf("Name [%s]", c.Name), os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if name != "" {
		c.Name = name
	}
	ein, err := GetSimpleText(a.reader, fmt.Sprintf("EIN [%s]", c.EIN), os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if ein != "" {
		c.EIN = ein
	}

	if err := a.charities.Update(ctx, c); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Charity updated.")
}

func (a *App) deleteCharity(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delcharity <id>")
		return
	}
	err := a.charities.Delete(ctx, args[0])
	if errors.Is(err, client.ErrConflict) {
		fmt.Println("Charity is still referenced by donations; delete those first.")
		return
	}
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Charity deleted.")
}
