package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/meikuraledutech/canvas/postgres"
	"github.com/meikuraledutech/canvas/workspace"
)

func main() {
	ctx := context.Background()

	// Use postgres when DATABASE_URL is set, otherwise keep everything in memory.
	var backend canvas.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		backend = pg
	}

	store, err := workspace.Open(ctx, backend, workspace.Options{Key: "example"})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer store.Close(ctx)

	store.Events().ContainerResized.Subscribe(func(ev workspace.ContainerResized) {
		fmt.Printf("  container %s -> %.0fx%.0f members=%v\n", ev.ContainerID, ev.Box.W, ev.Box.H, ev.Members)
	})

	// ── Build a system with one service inside ───────────────────────
	err = store.ApplyNodeChanges([]canvas.NodeChange{
		{Kind: canvas.ChangeAdd, Item: &canvas.Node{
			ID: "A", Type: canvas.TypeSystem, Width: 600, Height: 400,
			Data: canvas.NodeData{Label: "Payments"},
		}},
		{Kind: canvas.ChangeAdd, Item: &canvas.Node{
			ID: "B", Type: "service", Position: canvas.Point{X: 100, Y: 100}, Width: 200, Height: 120,
			Data: canvas.NodeData{Label: "Ledger"},
		}},
		{Kind: canvas.ChangeAdd, Item: &canvas.Node{
			ID: "C", Type: "database", Position: canvas.Point{X: 900, Y: 100},
			Data: canvas.NodeData{Label: "Postgres"},
		}},
	})
	if err != nil {
		log.Fatalf("add nodes: %v", err)
	}

	edge, err := store.Connect(canvas.Connection{Source: "B", Target: "C", ConnectionType: "tcp"})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	fmt.Printf("edge %s: %s -> %s (%s)\n", edge.ID, edge.Source, edge.Target, edge.Data.PathType)

	printNode(store, "B")

	// ── Drag B; only the release is recorded ─────────────────────────
	for _, step := range []canvas.Point{{X: 120, Y: 110}, {X: 140, Y: 120}, {X: 150, Y: 130}} {
		p := step
		err := store.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "B", Position: &p, Dragging: true}})
		if err != nil {
			log.Fatalf("drag: %v", err)
		}
	}
	end := canvas.Point{X: 150, Y: 130}
	if err := store.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "B", Position: &end}}); err != nil {
		log.Fatalf("release: %v", err)
	}
	printNode(store, "B")

	// ── Group B with everything it connects to ───────────────────────
	group, err := store.Group([]string{"B"})
	if err != nil {
		log.Fatalf("group: %v", err)
	}
	fmt.Printf("group %s: nodes=%v edges=%v\n", group.GroupID, group.NodeIDs, group.EdgeIDs)

	// ── Undo the group and the drag ──────────────────────────────────
	for range 2 {
		if _, err := store.Undo(); err != nil {
			log.Fatalf("undo: %v", err)
		}
	}
	printNode(store, "B")

	// ── A second workspace keeps its own history ─────────────────────
	ws := store.CreateWorkspace("Scratch")
	fmt.Printf("switched to %s (%s), canUndo=%v\n", ws.Name, ws.ID, store.CanUndo())

	if err := store.Persist(ctx); err != nil {
		log.Fatalf("persist: %v", err)
	}
	data, err := store.ExportDocument()
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("persisted %d workspaces (%d bytes)\n", len(store.Workspaces()), len(data))
}

func printNode(store *workspace.Store, id string) {
	for _, n := range store.Graph().Nodes {
		if n.ID == id {
			fmt.Printf("node %s at (%.0f, %.0f) group=%q\n", n.ID, n.Position.X, n.Position.Y, n.Data.GroupID)
			return
		}
	}
}
