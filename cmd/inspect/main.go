// Command inspect prints the message history of a badger store as a table.
//
//	inspect -db data/chat [-user 3]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/Tyrowin/chatrelay/internal/store"
)

const maxTextWidth = 60

func main() {
	_ = godotenv.Load()
	defaultPath := os.Getenv("BADGER_PATH")
	if defaultPath == "" {
		defaultPath = "data/chat"
	}

	dbPath := flag.String("db", defaultPath, "Path to the badger store")
	userID := flag.Int64("user", 0, "Only show messages written by this user id")
	flag.Parse()

	if err := run(os.Stdout, *dbPath, *userID); err != nil {
		fmt.Fprintln(os.Stderr, color.FgRed.Render("inspect: "+err.Error()))
		os.Exit(1)
	}
}

func run(out io.Writer, dbPath string, userID int64) error {
	reader, err := store.OpenBadgerReader(dbPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	table := newTable(out)
	count := 0
	err = reader.Each(func(key string, m store.Message) error {
		if userID != 0 && m.UserID != userID {
			return nil
		}
		count++
		table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			m.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(m.UserID, 10),
			m.Username,
			truncate(m.Text, maxTextWidth),
			key,
		})
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	_, err = fmt.Fprintln(out, color.New(color.FgGray).Render(fmt.Sprintf("%d message(s)", count)))
	return err
}

func newTable(out io.Writer) *tablewriter.Table {
	header := []string{"ID", "Time", "User ID", "Username", "Text", "Key"}
	for i, h := range header {
		header[i] = color.New(color.BgBlack, color.FgGreen).Render(h)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
