// embercore-admin inspects and edits a data directory while the game
// engine is offline.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bxcodec/faker/v4"
	"github.com/emberforge/embercore/ledger"
	"github.com/emberforge/embercore/server"
	"github.com/emberforge/embercore/storage"
	"github.com/emberforge/embercore/structs"
	"github.com/google/uuid"
	"github.com/rodaine/table"
)

func main() {
	dir := flag.String("dir", filepath.Join(os.Getenv("HOME"), ".embercore"), "Data directory to operate on.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  balance <uuid>           Show an account balance\n")
		fmt.Fprintf(os.Stderr, "  set <uuid> <amount>      Overwrite an account balance\n")
		fmt.Fprintf(os.Stderr, "  give <uuid> <amount>     Deposit into an account\n")
		fmt.Fprintf(os.Stderr, "  take <uuid> <amount>     Withdraw from an account\n")
		fmt.Fprintf(os.Stderr, "  top [n]                  List the richest accounts (default 10)\n")
		fmt.Fprintf(os.Stderr, "  seed <n>                 Create n fixture accounts with random balances\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	config, err := server.LoadConfig(*dir)
	if err != nil {
		log.Fatal(err)
	}
	defaultBalance, err := structs.ParseAmount(config.DefaultBalance)
	if err != nil {
		log.Fatal(err)
	}
	store, err := storage.Open(*dir)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	led := ledger.New(store.DB, ledger.Config{
		DefaultBalance: defaultBalance,
		Symbol:         config.CurrencySymbol,
		SymbolSuffix:   config.SymbolSuffix,
		SymbolSpace:    config.SymbolSpace,
		DecimalPlaces:  config.DecimalPlaces,
		ThousandsSep:   config.ThousandsSep,
	})

	switch args[0] {
	case "balance":
		id := mustID(args, 1)
		fmt.Println(led.Format(led.GetBalance(id)))
	case "set":
		if !led.SetBalance(mustID(args, 1), mustAmount(args, 2)) {
			log.Fatal("set failed")
		}
	case "give":
		if !led.Deposit(mustID(args, 1), mustAmount(args, 2)) {
			log.Fatal("deposit failed")
		}
	case "take":
		if !led.Withdraw(mustID(args, 1), mustAmount(args, 2)) {
			log.Fatal("withdraw failed")
		}
	case "top":
		limit := 10
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil {
				log.Fatal(err)
			}
		}
		tbl := table.New("#", "UUID", "Name", "Balance")
		for rank, entry := range led.TopBalances(limit) {
			tbl.AddRow(rank+1, entry.ID, entry.Name, led.Format(entry.Amount))
		}
		tbl.Print()
	case "seed":
		count := 0
		if len(args) > 1 {
			if count, err = strconv.Atoi(args[1]); err != nil {
				log.Fatal(err)
			}
		}
		for i := 0; i < count; i++ {
			id := uuid.New()
			led.SetBalance(id, structs.Amount(rand.Int64N(int64(defaultBalance)*100)))
			led.SetName(id, faker.Name())
		}
		fmt.Printf("seeded %d accounts\n", count)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

func mustID(args []string, index int) uuid.UUID {
	if len(args) <= index {
		flag.Usage()
		os.Exit(1)
	}
	id, err := uuid.Parse(args[index])
	if err != nil {
		log.Fatal(err)
	}
	return id
}

func mustAmount(args []string, index int) structs.Amount {
	if len(args) <= index {
		flag.Usage()
		os.Exit(1)
	}
	amount, err := structs.ParseAmount(args[index])
	if err != nil {
		log.Fatal(err)
	}
	return amount
}
