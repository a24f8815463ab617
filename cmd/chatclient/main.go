package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chatroom/internal/client"
	"github.com/zhouzirui/chatroom/internal/config"
	"github.com/zhouzirui/chatroom/internal/model/chat"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	baseURL := flag.String("url", cfg.BaseURL, "chat server origin, e.g. http://localhost:8080")
	name := flag.String("name", cfg.Name, "display name shown to the room")
	origin := flag.String("origin", cfg.OriginURL, "page URL reported when the room is registered")
	roomID := flag.String("room", cfg.RoomID, "join an existing room instead of opening a new one")
	agentID := flag.String("agent", cfg.AgentID, "staff id; marks messages as sent by an agent")
	strict := flag.Bool("strict", false, "abort when room registration fails")
	width := flag.Int("width", 80, "terminal width used to right-align your own messages")

	flag.Parse()

	if strings.TrimSpace(*name) == "" {
		flag.Usage()
		log.Fatal("请通过 -name 或 CHAT_NAME 指定显示名称")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := &linePrinter{w: os.Stdout, width: *width, self: *name}

	opts := []client.Option{
		client.WithRoomID(*roomID),
		client.WithAgentID(*agentID),
		client.WithTimeouts(cfg.HTTPTimeout, cfg.HandshakeTimeout),
	}
	if *strict {
		opts = append(opts, client.WithStrictRegistration())
	}

	session, err := client.New(*baseURL, client.Hooks{
		OnMessage: printer.print,
		OnOpen: func() {
			log.Println("[chatclient] connected, type a message and press enter")
		},
		OnClose: func(err error) {
			if err != nil {
				log.Printf("[chatclient] connection lost: %v", err)
			}
			stop()
		},
		OnError: func(err error) {
			log.Printf("[chatclient] %v", err)
		},
	}, opts...)
	if err != nil {
		log.Fatalf("创建会话失败: %v", err)
	}

	log.Printf("[chatclient] room %s", session.RoomID())

	if err := session.Join(ctx, *name, *origin); err != nil {
		log.Fatalf("加入房间失败: %v", err)
	}

	go func() {
		if err := sendLines(os.Stdin, session); err != nil {
			log.Printf("[chatclient] %v", err)
		}
		stop()
	}()

	<-session.Done()
}

type sender interface {
	Send(text string) error
}

// sendLines forwards every non-empty input line until EOF.
func sendLines(r io.Reader, s sender) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.Send(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

type linePrinter struct {
	w     io.Writer
	width int
	self  string
}

// print runs on the session's read goroutine only.
func (p *linePrinter) print(msg chat.ChatMessage) {
	fmt.Fprintln(p.w, renderMessage(msg, p.self, p.width))
}
