// Package server is the HTTP surface of slidedeck: read-only shared decks,
// their PDF export, and a websocket relay of the comment change feed.
package server

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"slidedeck/internal/auth"
	"slidedeck/internal/config"
	"slidedeck/internal/export"
	"slidedeck/internal/realtime"
	"slidedeck/internal/share"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
)

const pingInterval = 30 * time.Second

// Server wraps the fiber app.
type Server struct {
	app    *fiber.App
	cfg    config.ServerConfig
	decks  share.Resolver
	feed   realtime.Feed
	tokens *auth.Manager
}

// New builds the app with its middleware and routes.
func New(cfg config.ServerConfig, decks share.Resolver, feed realtime.Feed, tokens *auth.Manager) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "slidedeck",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorJSON,
	})
	s := &Server{app: app, cfg: cfg, decks: decks, feed: feed, tokens: tokens}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))
	s.app.Use(logger.New(logger.Config{
		Format:     "[http] ${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     log.Writer(),
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/shared/:slug", s.sharedDeck)
	s.app.Get("/shared/:slug/export.pdf", s.sharedPDF)

	s.app.Get("/ws/slides/:id/comments", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Browsers cannot set headers on a websocket handshake.
		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		userID, err := s.tokens.UserID(token)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		c.Locals("userID", userID)
		return c.Next()
	}, websocket.New(s.relayComments, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}))
}

func (s *Server) sharedDeck(c *fiber.Ctx) error {
	d, err := s.resolve(c)
	if err != nil {
		return err
	}
	return c.JSON(publicView(d))
}

func (s *Server) sharedPDF(c *fiber.Ctx) error {
	d, err := s.resolve(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.PDF(&buf, d, export.Options{PageNumbers: true}); err != nil {
		log.Printf("[http] export %s: %v", d.ID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "export failed")
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="presentation.pdf"`)
	return c.Send(buf.Bytes())
}

func (s *Server) resolve(c *fiber.Ctx) (slide.Deck, error) {
	d, err := share.Resolve(c.UserContext(), s.decks, c.Params("slug"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return d, fiber.NewError(fiber.StatusNotFound, "presentation not found")
	case err != nil:
		log.Printf("[http] resolve %s: %v", c.Params("slug"), err)
		return d, fiber.NewError(fiber.StatusInternalServerError, "could not load presentation")
	}
	return d, nil
}

func errorJSON(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// relayComments forwards one slide's comment change events to the socket
// until either side goes away.
func (s *Server) relayComments(c *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ws] relay panic: %v", r)
		}
	}()

	slideID := c.Params("id")
	userID, _ := c.Locals("userID").(string)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := s.feed.Subscribe(ctx, slideID)
	if err != nil {
		log.Printf("[ws] subscribe %s: %v", slideID, err)
		c.WriteJSON(fiber.Map{"error": "feed unavailable"})
		c.Close()
		return
	}
	defer sub.Close()
	log.Printf("[ws] user=%s watching slide=%s", userID, slideID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				c.Close()
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Printf("[ws] user=%s left slide=%s", userID, slideID)
			return
		}
	}
}

// publicView drops what only the owner should see.
func publicView(d slide.Deck) slide.Deck {
	d.OwnerID = ""
	slides := make([]slide.Slide, len(d.Slides))
	for i, sl := range d.Slides {
		sl.Notes = ""
		sl.ImagePrompt = ""
		slides[i] = sl
	}
	d.Slides = slides
	return d
}

// Start listens until SIGINT or SIGTERM.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[http] shutting down")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("[http] shutdown: %v", err)
		}
	}()

	log.Printf("[http] listening on %s", s.cfg.Port)
	return s.app.Listen(s.cfg.Port)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
