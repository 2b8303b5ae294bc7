package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ltavares/courier/internal/config"
	"github.com/ltavares/courier/internal/gateway"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.courier/config.toml)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	gw := gateway.New(cfg.APIBaseURL, cfg.AuthToken, cfg.RequestTimeout(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "inbox":
		cmdInbox(ctx, gw, args[1:], *jsonFlag)
	case "conversation":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: courierctl conversation <peer> [page]")
			os.Exit(1)
		}
		cmdConversation(ctx, gw, args[1], args[2:], *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: courierctl send <peer> <message...>")
			os.Exit(1)
		}
		cmdSend(ctx, gw, args[1], strings.Join(args[2:], " "), *jsonFlag)
	case "search-users":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: courierctl search-users <query>")
			os.Exit(1)
		}
		cmdSearchUsers(ctx, gw, args[1], *jsonFlag)
	case "whoami":
		cmdWhoami(ctx, gw, cfg.Username, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: courierctl [--config <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  inbox [page] [query]        List inbox conversations")
	fmt.Fprintln(os.Stderr, "  conversation <peer> [page]  List messages with a peer")
	fmt.Fprintln(os.Stderr, "  send <peer> <message...>    Send a message")
	fmt.Fprintln(os.Stderr, "  search-users <query>        Search usernames")
	fmt.Fprintln(os.Stderr, "  whoami                      Show the configured account profile")
}

func cmdInbox(ctx context.Context, gw *gateway.Client, args []string, jsonOut bool) {
	page := 1
	query := ""
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: bad page %q\n", args[0])
			os.Exit(1)
		}
		page = p
	}
	if len(args) > 1 {
		query = args[1]
	}

	resp, err := gw.ListInbox(ctx, page, query)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.Results) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, e := range resp.Results {
		unread := ""
		if e.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", e.UnreadCount)
		}
		fmt.Printf("%-20s %s%s\n", e.WithUser, e.LastMessage, unread)
	}
	fmt.Printf("page %d of %d\n", page, resp.NumPages)
}

func cmdConversation(ctx context.Context, gw *gateway.Client, peer string, rest []string, jsonOut bool) {
	page := 1
	if len(rest) > 0 {
		p, err := strconv.Atoi(rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: bad page %q\n", rest[0])
			os.Exit(1)
		}
		page = p
	}

	resp, err := gw.ListConversation(ctx, page, peer)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	// Newest first on the wire; print oldest first.
	for i := len(resp.Results) - 1; i >= 0; i-- {
		m := resp.Results[i]
		fmt.Printf("[%s] %s: %s\n", m.SentDate, m.Sender, m.Body)
	}
	fmt.Printf("page %d of %d\n", page, resp.NumPages)
}

func cmdSend(ctx context.Context, gw *gateway.Client, peer, body string, jsonOut bool) {
	msg, err := gw.CreateMessage(ctx, peer, body)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("sent to %s: %s\n", peer, msg.Body)
}

func cmdSearchUsers(ctx context.Context, gw *gateway.Client, query string, jsonOut bool) {
	hits, err := gw.SearchUsers(ctx, query)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(hits)
		return
	}
	if len(hits) == 0 {
		fmt.Println("No users found.")
		return
	}
	for _, h := range hits {
		fmt.Println(h.Username)
	}
}

func cmdWhoami(ctx context.Context, gw *gateway.Client, username string, jsonOut bool) {
	if username == "" {
		fmt.Fprintln(os.Stderr, "error: no username configured")
		os.Exit(1)
	}
	p, err := gw.FetchProfile(ctx, username)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(p)
		return
	}
	fmt.Printf("Username: %s\n", p.Username)
	if p.FirstName != "" || p.LastName != "" {
		fmt.Printf("Name:     %s %s\n", p.FirstName, p.LastName)
	}
	if p.Bio != "" {
		fmt.Printf("Bio:      %s\n", p.Bio)
	}
	if len(p.Interests) > 0 {
		fmt.Printf("Interests: %s\n", strings.Join(p.Interests, ", "))
	}
}

func fail(err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.ProcessedData != nil {
		raw, _ := json.Marshal(apiErr.ProcessedData)
		fmt.Fprintf(os.Stderr, "error: %v: %s\n", err, raw)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
