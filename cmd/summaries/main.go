package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"mixmatch/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	limit := flag.Int("limit", 20, "Number of games to show, 0 for all")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	summaries, err := repositories.NewSummaryRepository(db, logs.GetLoggerFromLevel(slog.LevelWarn)).List(*limit)
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Ended", "Room", "Rounds", "Players", "Winner", "Tracks"})
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

	for _, s := range summaries {
		winner := "-"
		if len(s.Leaderboard) > 0 {
			winner = fmt.Sprintf("%s (%d)", s.Leaderboard[0].Name, s.Leaderboard[0].Score)
		}
		titles := make([]string, 0, len(s.TracksPlayed))
		for _, t := range s.TracksPlayed {
			titles = append(titles, t.Title)
		}
		table.Append([]string{
			s.EndedAt.Local().Format("2006-01-02 15:04:05"),
			s.Code,
			fmt.Sprint(s.TotalRounds),
			fmt.Sprint(len(s.Players)),
			winner,
			strings.Join(titles, ", "),
		})
	}
	table.Render()
}
