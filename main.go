package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"slidedeck/internal/ai"
	"slidedeck/internal/auth"
	"slidedeck/internal/config"
	"slidedeck/internal/editor"
	"slidedeck/internal/export"
	"slidedeck/internal/media"
	"slidedeck/internal/panel"
	"slidedeck/internal/present"
	"slidedeck/internal/realtime"
	"slidedeck/internal/render"
	"slidedeck/internal/server"
	"slidedeck/internal/share"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

const usage = `slidedeck presents and edits slide decks in the terminal.

Usage:
  slidedeck [present] [-deck id] [-start n] [-notes] [-window]
  slidedeck shared <slug>
  slidedeck edit [-deck id]
  slidedeck new -topic "..." [-slides n]
  slidedeck export [-deck id] [-o file.pdf] [-notes]
  slidedeck serve
  slidedeck token -user id [-name name]

Without DATABASE_URL, decks are read from the markdown files in SLIDES_DIR.
`

func main() {
	cfg := config.Load()

	cmd, args := "present", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "present":
		err = runPresent(cfg, args)
	case "shared":
		err = runShared(cfg, args)
	case "edit":
		err = runEdit(cfg, args)
	case "new":
		err = runNew(cfg, args)
	case "export":
		err = runExport(cfg, args)
	case "serve":
		err = runServe(cfg)
	case "token":
		err = runToken(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runPresent(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("present", flag.ExitOnError)
	deckID := fs.String("deck", "", "deck id (default: the slides directory)")
	start := fs.Int("start", 0, "slide index to start at")
	notes := fs.Bool("notes", false, "show speaker notes")
	window := fs.Bool("window", false, "do not take over the whole terminal")
	fs.Parse(args)

	reader, closeStore, err := openReader(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	id := *deckID
	load := func(ctx context.Context) (slide.Deck, error) { return reader.Deck(ctx, id) }
	return runPresenter(cfg, load, present.WithStart(*start), present.WithNotes(*notes), present.WithFullscreen(!*window))
}

func runShared(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: slidedeck shared <slug>")
	}
	if cfg.Store.DSN == "" {
		return errors.New("shared decks need DATABASE_URL")
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	slug := args[0]
	load := func(ctx context.Context) (slide.Deck, error) { return share.Resolve(ctx, st, slug) }
	return runPresenter(cfg, load)
}

func runPresenter(cfg *config.Config, load present.Loader, opts ...present.Option) error {
	closeLog, err := setupTUILog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	r, err := render.New(render.WithStyle(cfg.Editor.Style))
	if err != nil {
		return err
	}
	p := tea.NewProgram(present.New(load, r, opts...), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}

func runEdit(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	deckID := fs.String("deck", "", "deck id (default: the slides directory)")
	fs.Parse(args)

	closeLog, err := setupTUILog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	userID, err := currentUser(cfg)
	if err != nil {
		return err
	}
	feed, closeFeed, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	id := *deckID
	if id == "" && cfg.Store.DSN == "" {
		id = store.NewDir(cfg.Store.SlidesDir).ID()
	}

	opts := []editor.Option{editor.WithHistoryCapacity(cfg.Editor.HistoryCapacity)}
	if gen, err := openAI(ctx, cfg); err != nil {
		log.Printf("[ai] disabled: %v", err)
	} else if gen != nil {
		log.Printf("[ai] generating with %s", gen.Name())
		opts = append(opts, editor.WithGenerator(gen))
	}
	if cfg.MediaEnabled() {
		images, err := media.New(media.Config{
			Endpoint:      cfg.Media.Endpoint,
			Region:        cfg.Media.Region,
			AccessKey:     cfg.Media.AccessKey,
			SecretKey:     cfg.Media.SecretKey,
			Bucket:        cfg.Media.Bucket,
			UseSSL:        cfg.Media.UseSSL,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
		if err != nil {
			log.Printf("[media] disabled: %v", err)
		} else {
			opts = append(opts, editor.WithImageStore(images))
		}
	}

	session, err := editor.Open(ctx, st, id, userID, opts...)
	if err != nil {
		return err
	}
	r, err := render.New(render.WithStyle(cfg.Editor.Style))
	if err != nil {
		return err
	}
	comments := panel.NewComments(realtime.Notify(st, feed), feed, userID)
	versions := panel.NewVersions(st)
	m := editor.NewModel(session, comments, versions, r,
		editor.WithShareBase(cfg.Server.PublicBaseURL),
		editor.WithExportDir(cfg.Editor.ExportDir),
	)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	comments.Close()
	return err
}

func runNew(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	topic := fs.String("topic", "", "what the deck is about")
	slides := fs.Int("slides", 8, "number of slides to draft")
	fs.Parse(args)

	ctx := context.Background()
	gen, err := openAI(ctx, cfg)
	if err != nil {
		return err
	}
	if gen == nil {
		return editor.ErrNoAI
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	userID, err := currentUser(cfg)
	if err != nil {
		return err
	}

	d, err := editor.NewDeck(ctx, st, gen, userID, *topic, *slides)
	if err != nil {
		return err
	}
	fmt.Printf("Created %q (%d slides)\n  id: %s\n  present: %s\n", d.Title, len(d.Slides), d.ID, share.PresentURL(cfg.Server.PublicBaseURL, d.ID))
	if cfg.Store.DSN == "" {
		fmt.Println("  note: DATABASE_URL is not set, the deck only lived for this run")
	}
	return nil
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	deckID := fs.String("deck", "", "deck id (default: the slides directory)")
	out := fs.String("o", "presentation.pdf", "output file")
	notes := fs.Bool("notes", false, "include speaker notes")
	fs.Parse(args)

	reader, closeStore, err := openReader(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	d, err := reader.Deck(context.Background(), *deckID)
	if err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := export.PDF(f, d, export.Options{Notes: *notes, PageNumbers: true}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d slides)\n", *out, len(d.Slides))
	return nil
}

func runServe(cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	feed, closeFeed, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer closeFeed()

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	return server.New(cfg.Server, st, feed, tokens).Start()
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	token, err := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry).Issue(*user, *name)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// openReader returns the hosted store, or the slides directory when no
// database is configured.
func openReader(cfg *config.Config) (store.DeckReader, func(), error) {
	if cfg.Store.DSN != "" {
		return openStore(cfg)
	}
	return store.NewDir(cfg.Store.SlidesDir), func() {}, nil
}

// openStore returns the hosted store, or an in-memory one seeded from the
// slides directory. Edits to the latter are not written back to the files.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.DSN != "" {
		pg, err := store.OpenPostgres(store.PostgresConfig{
			DSN:             cfg.Store.DSN,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			AutoMigrate:     cfg.Store.AutoMigrate,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}

	mem := store.NewMemory()
	d, err := store.NewDir(cfg.Store.SlidesDir).Load()
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Printf("[store] %v, starting empty", err)
	case err != nil:
		return nil, nil, err
	default:
		if _, err := mem.CreateDeck(context.Background(), d); err != nil {
			return nil, nil, err
		}
	}
	return mem, func() {}, nil
}

func openFeed(cfg *config.Config) (realtime.Feed, func(), error) {
	if cfg.Redis.Addr == "" {
		hub := realtime.NewHub()
		return hub, func() { hub.Close() }, nil
	}
	rd, err := realtime.NewRedis(realtime.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	return rd, func() { rd.Close() }, nil
}

// openAI returns nil without error when no API key is configured.
func openAI(ctx context.Context, cfg *config.Config) (*ai.Client, error) {
	if !cfg.AIEnabled() {
		return nil, nil
	}
	return ai.New(ctx, cfg.AI.APIKey, cfg.AI.TextModel, cfg.AI.ImageModel)
}

// currentUser resolves the session token, falling back to the configured
// user id for local use.
func currentUser(cfg *config.Config) (string, error) {
	if cfg.Auth.Token != "" {
		return auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry).UserID(cfg.Auth.Token)
	}
	if cfg.Auth.UserID != "" {
		return cfg.Auth.UserID, nil
	}
	return "local", nil
}

// setupTUILog keeps log output off the terminal while a program owns it.
func setupTUILog(cfg *config.Config) (func(), error) {
	if cfg.LogFile == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile(cfg.LogFile, "slidedeck")
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}
