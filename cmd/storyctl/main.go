package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bongbari/internal/client"
	"github.com/bongbari/internal/locale"
)

// storyctl submits a story from the command line.
//
//	storyctl -server http://localhost:8080 -name Rina "story text"
//	echo "story text" | storyctl -yes
func main() {
	server := flag.String("server", envOr("BONGBARI_SERVER", "http://localhost:8080"), "API base URL")
	name := flag.String("name", "", "author name, empty for anonymous")
	lang := flag.String("lang", "bn", "story language (bn or en)")
	yes := flag.Bool("yes", false, "submit review-suggested stories without asking")
	deviceFile := flag.String("device-file", "", "where to keep the device id")
	flag.Parse()

	text, fromStdin, err := readStory(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	path := *deviceFile
	if path == "" {
		if path, err = client.DefaultDeviceStorePath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	language := locale.OrDefault(*lang)
	c := client.New(*server, client.WithDeviceStore(client.NewFileDeviceStore(path)), client.WithLanguage(language))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	confirm := promptConfirm(bufio.NewReader(os.Stdin), os.Stdout)
	if *yes || fromStdin {
		confirm = func(v client.Verdict, text string) (client.Decision, error) {
			if !*yes {
				return client.Decision{}, errors.New("story needs confirmation; rerun with -yes or pass the text as an argument")
			}
			return client.Decision{Proceed: true}, nil
		}
	}

	outcome, err := c.Submit(ctx, client.Draft{
		Name:        *name,
		IsAnonymous: strings.TrimSpace(*name) == "",
		Lang:        language,
		Text:        text,
	}, confirm)
	code := report(os.Stdout, os.Stderr, language, outcome, err)
	stop()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func readStory(args []string, stdin io.Reader) (string, bool, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), false, nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 64<<10))
	if err != nil {
		return "", true, fmt.Errorf("read story from stdin: %w", err)
	}
	return string(data), true, nil
}

// promptConfirm asks on the terminal: y submits, n cancels, e reads a
// replacement line.
func promptConfirm(in *bufio.Reader, out io.Writer) client.Confirm {
	return func(v client.Verdict, text string) (client.Decision, error) {
		fmt.Fprintf(out, "%s\nflagged: %s\n[y]es / [n]o / [e]dit: ", v.Message, strings.Join(v.Flags, ", "))
		answer, err := in.ReadString('\n')
		if err != nil && answer == "" {
			return client.Decision{}, fmt.Errorf("read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return client.Decision{Proceed: true}, nil
		case "e", "edit":
			fmt.Fprint(out, "new text: ")
			edited, err := in.ReadString('\n')
			if err != nil && edited == "" {
				return client.Decision{}, fmt.Errorf("read edit: %w", err)
			}
			return client.Decision{Proceed: true, Text: strings.TrimSpace(edited)}, nil
		default:
			return client.Decision{Proceed: false}, nil
		}
	}
}

func report(stdout, stderr io.Writer, language string, outcome client.SubmitOutcome, err error) int {
	if err == nil {
		fmt.Fprintf(stdout, "%s (%s, %s)\n", outcome.Message, outcome.Status, outcome.PostID)
		return 0
	}

	var limited *client.RateLimitError
	var blocked *client.ContentBlockedError
	switch {
	case errors.As(err, &limited):
		until := time.Now().Add(limited.RetryAfter).Format("15:04")
		fmt.Fprintf(stderr, "%s\n", locale.Message(language, locale.MsgRateLimited, locale.FormatWait(language, limited.RetryAfter)))
		fmt.Fprintf(stderr, "next submission after %s\n", until)
	case errors.As(err, &blocked):
		fmt.Fprintln(stderr, locale.Message(language, locale.MsgSensitiveContent))
	case errors.Is(err, client.ErrCancelled):
		fmt.Fprintln(stderr, "cancelled")
	case errors.Is(err, client.ErrEmptyText):
		fmt.Fprintln(stderr, locale.Message(language, locale.MsgTextRequired))
	case errors.Is(err, client.ErrTextTooLong):
		fmt.Fprintln(stderr, locale.Message(language, locale.MsgTextTooLong, client.MaxStoryRunes))
	case errors.Is(err, client.ErrNameTooLong):
		fmt.Fprintln(stderr, locale.Message(language, locale.MsgAuthorTooLong, client.MaxNameRunes))
	default:
		fmt.Fprintln(stderr, err)
	}
	return 1
}
