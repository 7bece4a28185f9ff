// Command inspect dumps the geochat BadgerDB without locking it.
package main

import (
	"flag"
	"fmt"
	"geochat/internal"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, user:, otp:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	rows, err := internal.Scan(db, *prefix, internal.GeochatMapper)
	if err != nil {
		log.Fatal(err)
	}

	color.Bold.Printf("%s ", *dbPath)
	color.Cyan.Printf("prefix=%q ", *prefix)
	color.Green.Printf("%d entries\n\n", len(rows))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range rows {
		table.Append([]string{row.Key, colorType(row.Type), row.Timestamp, row.EntityID, row.Detail})
	}
	table.Render()
}

func colorType(t string) string {
	switch t {
	case internal.RowMessage:
		return color.Green.Sprint(t)
	case internal.RowUser, internal.RowEmail:
		return color.Cyan.Sprint(t)
	case internal.RowOTP:
		return color.Yellow.Sprint(t)
	default:
		return color.Gray.Sprint(t)
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// A crashed writer left a dirty value log, a write open truncates it
		repair, repairErr := badger.Open(badger.DefaultOptions(path).
			WithLogger(nil).WithBypassLockGuard(true))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repair.Close()
		return badger.Open(opts)
	}
	return db, err
}
