// Command quizbot joins a room as a player and answers every question at
// random. Handy to fill a lobby while testing a host screen.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	ServerURL string `envconfig:"QUIZBOT_SERVER_URL" default:"ws://localhost:8080/ws"`
	Code      string `envconfig:"QUIZBOT_ROOM" required:"true"`
	Name      string `envconfig:"QUIZBOT_NAME" default:"Bot"`
	// QUIZBOT_THINK delays each answer to look a bit more human
	Think   time.Duration `envconfig:"QUIZBOT_THINK" default:"1s"`
	Colours bool          `envconfig:"QUIZBOT_COLOURS" default:"true"`
}

type frame struct {
	Type    string          `json:"type"`
	ID      *int64          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type question struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Round   int      `json:"round"`
}

type player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type bot struct {
	cfg    Config
	socket *websocket.Conn
	nextID int64
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err)
	}
	socket, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL, nil)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer socket.Close()

	b := &bot{cfg: cfg, socket: socket}
	if err := b.send("player:joinRoom", map[string]string{"code": cfg.Code, "name": cfg.Name}); err != nil {
		log.Fatal(err)
	}
	if err := b.loop(); err != nil {
		log.Fatal(err)
	}
}

func (b *bot) send(typ string, payload any) error {
	b.nextID++
	return b.socket.WriteJSON(outbound{ID: b.nextID, Type: typ, Payload: payload})
}

func (b *bot) say(c color.Color, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if b.cfg.Colours {
		line = c.Render(line)
	}
	fmt.Println(line)
}

func (b *bot) loop() error {
	for {
		var f frame
		if err := b.socket.ReadJSON(&f); err != nil {
			return err
		}
		switch f.Type {
		case "ack":
			var ack map[string]any
			_ = json.Unmarshal(f.Payload, &ack)
			if ok, _ := ack["ok"].(bool); !ok {
				b.say(color.FgRed, "refused: %v", ack["error"])
				if f.ID != nil && *f.ID == 1 {
					return fmt.Errorf("could not join room %s", b.cfg.Code)
				}
			}
		case "question:new":
			var q question
			if err := json.Unmarshal(f.Payload, &q); err != nil {
				return err
			}
			b.say(color.FgCyan, "round %d: %s", q.Round, q.Prompt)
			if err := b.answer(q); err != nil {
				return err
			}
		case "question:result":
			var r struct {
				Leaderboard []player `json:"leaderboard"`
			}
			_ = json.Unmarshal(f.Payload, &r)
			b.say(color.FgYellow, "leader: %s", leader(r.Leaderboard))
		case "game:end":
			var end struct {
				Leaderboard []player `json:"leaderboard"`
			}
			_ = json.Unmarshal(f.Payload, &end)
			printLeaderboard(end.Leaderboard)
		case "room:closed":
			b.say(color.FgMagenta, "room closed")
			return nil
		}
	}
}

func (b *bot) answer(q question) error {
	time.Sleep(b.cfg.Think)
	payload := map[string]any{"questionId": q.ID}
	if len(q.Options) > 0 {
		choice := rand.IntN(len(q.Options))
		payload["answerIndex"] = choice
		b.say(color.FgGreen, "  -> %s", q.Options[choice])
	} else {
		payload["text"] = "no idea"
	}
	return b.send("answer:submit", payload)
}

func leader(board []player) string {
	if len(board) == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (%d)", board[0].Name, board[0].Score)
}

func printLeaderboard(board []player) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Player", "Score"})
	table.SetBorder(false)
	for i, p := range board {
		table.Append([]string{strconv.Itoa(i + 1), p.Name, strconv.Itoa(p.Score)})
	}
	table.Render()
}
