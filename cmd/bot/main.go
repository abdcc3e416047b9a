package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"scenefacts.ai/internal/protocol"
)

// bot plays a simulator: it sends DESCRIBE frames read from a file (one JSON
// document per line) and prints the facts that come back.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		requests = flag.String("requests", "", "file with one DESCRIBE json per line")
		interval = flag.Duration("interval", 0, "pause between requests")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	if *requests == "" {
		logger.Fatalf("missing -requests")
	}
	f, err := os.Open(*requests)
	if err != nil {
		logger.Fatalf("open requests: %v", err)
	}
	defer f.Close()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			logger.Fatalf("send DESCRIBE: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		handleReply(logger, msg)
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}
	if err := sc.Err(); err != nil {
		logger.Fatalf("read requests: %v", err)
	}
}

func handleReply(logger *log.Logger, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		logger.Printf("bad reply: %v", err)
		return
	}
	switch base.Type {
	case protocol.TypeFacts:
		var facts protocol.FactsMsg
		if err := json.Unmarshal(msg, &facts); err != nil {
			logger.Printf("bad FACTS: %v", err)
			return
		}
		logger.Printf("FACTS step=%d agents=%d", facts.Step, len(facts.Facts))
		for id, fs := range facts.Facts {
			for _, s := range fs {
				logger.Printf("  %s: %s", id, s)
			}
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			logger.Printf("bad ERROR: %v", err)
			return
		}
		logger.Printf("ERROR step=%d code=%s: %s", e.Step, e.Code, e.Message)
	default:
		logger.Printf("unexpected %s", base.Type)
	}
}
