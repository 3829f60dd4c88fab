// Package wiring builds the ThreadBox service graph with go.uber.org/dig,
// the same container shape crystaldolphin's internal/container package
// uses to wire its agent loop: one Provide per constructor, one Invoke
// to pull the built singletons out into a plain struct so callers never
// import dig directly.
package wiring

import (
	"context"

	"go.uber.org/dig"

	"github.com/simbo1905/threadbox-mcp/internal/storage"
	"github.com/simbo1905/threadbox-mcp/internal/tools"
)

// Config is the caller-supplied input the container is built from.
type Config struct {
	Ctx           context.Context
	DBPath        string
	ExportDir     string
	ServerVersion string
}

// Container holds the resolved service singletons.
type Container struct {
	db         *storage.DB
	engine     *storage.Engine
	dispatcher *tools.Dispatcher
}

func (c *Container) DB() *storage.DB               { return c.db }
func (c *Container) Engine() *storage.Engine       { return c.engine }
func (c *Container) Dispatcher() *tools.Dispatcher { return c.dispatcher }

// Close releases the underlying database handle.
func (c *Container) Close() error {
	return c.db.Close()
}

// New builds and wires DB -> Engine -> Dispatcher from cfg.
func New(cfg Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newDB); err != nil {
		return nil, err
	}
	if err := d.Provide(newEngine); err != nil {
		return nil, err
	}
	if err := d.Provide(newDispatcher); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(db *storage.DB, eng *storage.Engine, disp *tools.Dispatcher) {
		result = &Container{db: db, engine: eng, dispatcher: disp}
	})
	return result, err
}

func newDB(cfg Config) (*storage.DB, error) {
	return storage.Open(cfg.Ctx, cfg.DBPath)
}

func newEngine(db *storage.DB) *storage.Engine {
	return storage.NewEngine(db)
}

func newDispatcher(cfg Config, eng *storage.Engine) *tools.Dispatcher {
	return tools.NewDispatcher(eng, cfg.ExportDir)
}
