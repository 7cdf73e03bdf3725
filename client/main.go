package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MsgTypeJoin     = 101
	MsgTypeRoll     = 201
	MsgTypeAnswer   = 202
	MsgTypeRestart  = 203
	MsgTypeSnapshot = 301
	MsgTypeQuestion = 302
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	sessionID := flag.String("session", "", "session code to join")
	name := flag.String("name", "player", "display name")
	flag.Parse()

	if *sessionID == "" {
		log.Fatal("-session is required")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	var pendingQuestion string

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]

			switch msgID {
			case MsgTypeQuestion:
				var q struct {
					QuestionID string   `json:"question_id"`
					Text       string   `json:"text"`
					Options    []string `json:"options"`
					FieldKind  string   `json:"field_kind"`
				}
				if err := json.Unmarshal(data, &q); err != nil {
					continue
				}
				pendingQuestion = q.QuestionID
				log.Printf("QUESTION (%s field): %s", q.FieldKind, q.Text)
				for i, opt := range q.Options {
					log.Printf("  [%d] %s", i, opt)
				}
				log.Println("Type 'answer <n>' to respond.")
			default:
				log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
			}
		}
	}()

	// Join the session with a fresh stable player identity
	playerID := uuid.New().String()
	join := map[string]string{"session_id": *sessionID, "player_id": playerID, "name": *name}
	joinData, _ := json.Marshal(join)
	if err := send(c, MsgTypeJoin, joinData); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Commands: roll, answer <n>, restart.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)

			switch {
			case text == "roll":
				if err := send(c, MsgTypeRoll, []byte(`{}`)); err != nil {
					log.Println("Write error:", err)
					return
				}
			case strings.HasPrefix(text, "answer "):
				option, err := strconv.Atoi(strings.TrimPrefix(text, "answer "))
				if err != nil {
					log.Println("Usage: answer <option index>")
					continue
				}
				answer := map[string]interface{}{"question_id": pendingQuestion, "option": option}
				answerData, _ := json.Marshal(answer)
				if err := send(c, MsgTypeAnswer, answerData); err != nil {
					log.Println("Write error:", err)
					return
				}
			case text == "restart":
				if err := send(c, MsgTypeRestart, []byte(`{}`)); err != nil {
					log.Println("Write error:", err)
					return
				}
			}
		}
	}
}
