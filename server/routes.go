package main

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/workspace"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type graphResponse struct {
	WorkspaceID string           `json:"workspaceId"`
	Nodes       []canvas.Node    `json:"nodes"`
	Edges       []canvas.Edge    `json:"edges"`
	Viewport    *canvas.Viewport `json:"viewport,omitempty"`
	Locked      bool             `json:"locked"`
	CanUndo     bool             `json:"canUndo"`
	CanRedo     bool             `json:"canRedo"`
}

type workspaceSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
	Active bool   `json:"active"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

func newApp(store *workspace.Store, logger *slog.Logger) *fiber.App {
	app := fiber.New()
	app.Use(recover.New())

	// ── Graph ─────────────────────────────────────────────────────────
	app.Get("/graph", func(c fiber.Ctx) error {
		return c.JSON(currentGraph(store))
	})

	app.Post("/nodes/changes", func(c fiber.Ctx) error {
		var changes []canvas.NodeChange
		if err := c.Bind().JSON(&changes); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := store.ApplyNodeChanges(changes); err != nil {
			return fail(c, err)
		}
		return c.JSON(currentGraph(store))
	})

	app.Post("/edges/changes", func(c fiber.Ctx) error {
		var changes []canvas.EdgeChange
		if err := c.Bind().JSON(&changes); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := store.ApplyEdgeChanges(changes); err != nil {
			return fail(c, err)
		}
		return c.JSON(currentGraph(store))
	})

	app.Post("/connect", func(c fiber.Ctx) error {
		var conn canvas.Connection
		if err := c.Bind().JSON(&conn); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		e, err := store.Connect(conn)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(201).JSON(e)
	})

	app.Post("/delete", func(c fiber.Ctx) error {
		var sel canvas.Selection
		if err := c.Bind().JSON(&sel); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := store.Delete(sel); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Groups ────────────────────────────────────────────────────────
	app.Post("/groups", func(c fiber.Ctx) error {
		var body struct {
			NodeIDs []string `json:"nodeIds"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		r, err := store.Group(body.NodeIDs)
		if err != nil {
			return fail(c, err)
		}
		if r.Empty() {
			return c.SendStatus(204)
		}
		return c.Status(201).JSON(r)
	})

	app.Delete("/groups/:id", func(c fiber.Ctx) error {
		if err := store.Ungroup(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── History ───────────────────────────────────────────────────────
	app.Post("/undo", func(c fiber.Ctx) error {
		ok, err := store.Undo()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"applied": ok})
	})

	app.Post("/redo", func(c fiber.Ctx) error {
		ok, err := store.Redo()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"applied": ok})
	})

	// ── Workspaces ────────────────────────────────────────────────────
	app.Get("/workspaces", func(c fiber.Ctx) error {
		active := store.ActiveID()
		var out []workspaceSummary
		for _, ws := range store.Workspaces() {
			out = append(out, workspaceSummary{
				ID:     ws.ID,
				Name:   ws.Name,
				Locked: ws.Locked,
				Active: ws.ID == active,
				Nodes:  len(ws.Nodes),
				Edges:  len(ws.Edges),
			})
		}
		return c.JSON(out)
	})

	app.Post("/workspaces", func(c fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&body); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
			}
		}
		ws := store.CreateWorkspace(body.Name)
		return c.Status(201).JSON(fiber.Map{"id": ws.ID, "name": ws.Name})
	})

	app.Put("/workspaces/:id/active", func(c fiber.Ctx) error {
		if err := store.SwitchActive(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(currentGraph(store))
	})

	app.Patch("/workspaces/:id", func(c fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := store.RenameWorkspace(c.Params("id"), body.Name); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Post("/workspaces/:id/lock", func(c fiber.Ctx) error {
		locked, err := store.ToggleLock(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"locked": locked})
	})

	app.Delete("/workspaces/:id", func(c fiber.Ctx) error {
		if err := store.CloseWorkspace(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Put("/viewport", func(c fiber.Ctx) error {
		var v canvas.Viewport
		if err := c.Bind().JSON(&v); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := store.SetViewport(v); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(204)
	})

	// ── Document ──────────────────────────────────────────────────────
	app.Get("/document", func(c fiber.Ctx) error {
		data, err := store.ExportDocument()
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	app.Put("/document", func(c fiber.Ctx) error {
		if err := store.ImportDocument(c.Body()); err != nil {
			return fail(c, err)
		}
		return c.JSON(currentGraph(store))
	})

	app.Post("/persist", func(c fiber.Ctx) error {
		if err := store.Persist(c.Context()); err != nil {
			logger.Warn("explicit persist failed", "error", err)
			return c.Status(503).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func currentGraph(store *workspace.Store) graphResponse {
	g := store.Graph()
	return graphResponse{
		WorkspaceID: store.ActiveID(),
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Viewport:    store.Viewport(),
		Locked:      store.Locked(),
		CanUndo:     store.CanUndo(),
		CanRedo:     store.CanRedo(),
	}
}

// fail maps store errors to HTTP status codes.
func fail(c fiber.Ctx, err error) error {
	var loadErr *canvas.LoadError
	status := 500
	switch {
	case errors.Is(err, canvas.ErrNodeNotFound),
		errors.Is(err, canvas.ErrEdgeNotFound),
		errors.Is(err, canvas.ErrWorkspaceNotFound),
		errors.Is(err, canvas.ErrNotFound):
		status = 404
	case errors.Is(err, canvas.ErrWorkspaceLocked),
		errors.Is(err, canvas.ErrLastWorkspace):
		status = 409
	case errors.Is(err, canvas.ErrInvalidChange),
		errors.Is(err, canvas.ErrDuplicateID),
		errors.Is(err, canvas.ErrSelectionSpansGroups),
		errors.As(err, &loadErr):
		status = 422
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
