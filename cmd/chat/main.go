package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rentmechat/internal/app/chatview"
	"rentmechat/internal/app/resolver"
	"rentmechat/internal/domain/chat"
	"rentmechat/internal/infra/config"
	"rentmechat/internal/infra/messaging"
	"rentmechat/internal/infra/obs"
)

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(2)
	}
	logger := obs.NewLoggerLevel(cfg.Env, os.Stderr, obs.ParseLevel(cfg.LogLevel))

	client, err := messaging.NewClient(messaging.Config{
		BaseURL:     cfg.APIURL,
		CallTimeout: cfg.HTTPTimeout,
	}, &http.Client{}, logger)
	if err != nil {
		logger.Error("messaging client init failed", "error", err)
		os.Exit(1)
	}

	view := chatview.New(chatview.Params{
		ViewerID:       chat.UserID(cfg.ViewerID),
		ListingID:      chat.ListingID(cfg.ListingID),
		HostID:         chat.UserID(cfg.HostID),
		ConversationID: chat.ConversationID(cfg.ConversationID),
		AllowHostChat:  cfg.AllowHostChat,
	}, chatview.Deps{
		Resolver: resolver.New(client, logger),
		Fetcher:  client,
		Sender:   client,
		Logger:   logger,
		Location: cfg.Location,
	})
	defer view.Close()

	scr := &screen{out: os.Stdout, view: view, loc: cfg.Location, logger: logger}
	view.OnChange(scr.refresh)
	if err := view.Start(ctx); err != nil {
		logger.Error("chat view start failed", "error", err)
		os.Exit(1)
	}
	scr.refresh()

	if !view.Decision().Allowed() {
		return
	}
	if err := readInput(ctx, os.Stdin, view, logger); err != nil {
		logger.Error("input loop failed", "error", err)
	}
}

// screen reprints the panel only when its text changes.
type screen struct {
	out    io.Writer
	view   *chatview.View
	loc    *time.Location
	logger *slog.Logger

	mu   sync.Mutex
	last []byte
}

func (s *screen) refresh() {
	var buf bytes.Buffer
	if err := chatview.Render(&buf, s.view.Snapshot(), s.loc); err != nil {
		s.logger.Warn("render failed", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes.Equal(buf.Bytes(), s.last) {
		return
	}
	s.last = buf.Bytes()
	fmt.Fprint(s.out, "\n", buf.String())
}

func readInput(ctx context.Context, in io.Reader, view *chatview.View, logger *slog.Logger) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/retry":
				if err := view.RetryUnsent(ctx); err != nil {
					logger.Warn("retry failed", "error", err)
				}
				continue
			}
			if _, err := view.Send(ctx, line); err != nil {
				switch {
				case errors.Is(err, chat.ErrEmptyBody):
				case errors.Is(err, chat.ErrNoConversation):
					fmt.Fprintln(os.Stderr, "chat: conversation is not ready yet")
				default:
					logger.Warn("send failed", "error", err)
				}
			}
		}
	}
}
