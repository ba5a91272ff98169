package http_handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/haintp/go-node-registry/internal/registry/domain"
	"github.com/haintp/go-node-registry/internal/registry/port"
	"github.com/haintp/go-node-registry/pkg/ipfilter"
)

// Server exposes the registry for inspection and manual peer management.
type Server struct {
	app    *fiber.App
	addr   string
	table  port.Registry
	filter ipfilter.Filter
}

func NewServer(addr string, table port.Registry, filter ipfilter.Filter) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:    app,
		addr:   addr,
		table:  table,
		filter: filter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", s.handleHealthz)
	s.app.Get("/peers", s.handleListPeers)
	s.app.Get("/peers/ids", s.handleListIDs)
	s.app.Post("/peers", s.handleAddPeer)
	s.app.Post("/peers/:id/useless", s.handleMarkUseless)
	s.app.Delete("/peers/useless", s.handleClearUseless)
	s.app.Post("/save", s.handleSave)
}

func (s *Server) Start() error {
	return s.app.Listen(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown()
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type peerView struct {
	URL               string `json:"url"`
	Attempts          uint32 `json:"attempts"`
	Failures          uint32 `json:"failures"`
	FailurePercentage int    `json:"failure_percentage"`
}

// handleListPeers returns all non-useless peers in ranked order with their
// reliability counters.
func (s *Server) handleListPeers(c *fiber.Ctx) error {
	entries := s.table.Entries()
	peers := make([]peerView, 0, len(entries))
	for _, entry := range entries {
		node, ok := s.table.Get(entry.ID)
		if !ok {
			continue
		}
		peers = append(peers, peerView{
			URL:               node.URL(),
			Attempts:          node.Attempts,
			Failures:          node.Failures,
			FailurePercentage: node.FailurePercentage(),
		})
	}
	return c.JSON(fiber.Map{"peers": peers})
}

// handleListIDs returns ranked ids after applying the node's IP policy, the
// same view the dial scheduler sees.
func (s *Server) handleListIDs(c *fiber.Ctx) error {
	ids := s.table.NodeIDs(s.filter)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return c.JSON(fiber.Map{"ids": out})
}

func (s *Server) handleAddPeer(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return s.sendJSONError(c, fiber.StatusBadRequest, "missing peer url")
	}

	node, err := domain.ParseNode(c.Context(), req.URL)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, err.Error())
	}
	s.table.Add(node)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": node.ID.String()})
}

func (s *Server) handleMarkUseless(c *fiber.Ctx) error {
	id, err := domain.ParseNodeID(c.Params("id"))
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, err.Error())
	}
	if !s.table.Contains(id) {
		return s.sendJSONError(c, fiber.StatusNotFound, "unknown peer")
	}
	s.table.MarkUseless(id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearUseless(c *fiber.Ctx) error {
	s.table.ClearUseless()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSave(c *fiber.Ctx) error {
	s.table.Save(c.Context())
	return c.SendStatus(fiber.StatusAccepted)
}
