package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/vk/jobchain/internal/broadcast"
	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/engine"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/hcl_adapter"
	"github.com/vk/jobchain/internal/inmemorystore"
	"github.com/vk/jobchain/internal/loader"
	"github.com/vk/jobchain/internal/localexecutor"
	"github.com/vk/jobchain/internal/objectstore"
	"github.com/vk/jobchain/internal/pgstore"
	"github.com/vk/jobchain/internal/registry"
	"github.com/vk/jobchain/internal/statestore"
	"github.com/vk/jobchain/internal/yaml_adapter"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ErrStalled is returned when no job is left running but the terminal job
// never completed.
var ErrStalled = errors.New("chain stalled before completion")

// Result summarises a finished run.
type Result struct {
	RunID    string
	Done     bool
	Response any               // terminal response when Done
	Failed   map[string]string // job id to error message
	Pending  []string          // jobs never dispatched
}

// Run loads the configured chain, starts it and waits until it is done or
// no job is left to run.
func (a *App) Run(ctx context.Context) (*Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	a.healthCheckServer()

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	ldr, err := a.loader(ctx)
	if err != nil {
		return nil, err
	}
	def, err := ldr.Lookup(ctx, a.config.Chain)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	a.logger.Info("Chain loaded.", "chain", def.Name(), "jobs", len(def.Jobs()), "inputs", def.Params())

	store, err := a.stateStore(ctx)
	if err != nil {
		return nil, err
	}

	var sock *socket.Socket
	notifiers := []engine.Notifier{broadcast.Log{}, broadcast.NewPrinter(a.outW)}
	if a.config.SocketIOURL != "" {
		sio, err := a.dialSocketIO(ctx)
		if err != nil {
			return nil, err
		}
		sock = sio.Socket()
		notifiers = append(notifiers, sio)
	}
	notifiers = append(notifiers, a.notifiers...)

	modules := a.modules
	if len(modules) == 0 {
		modules = a.coreModules(sock, a.optionalObjectClient(ctx))
	}
	reg := registry.New(modules...)
	a.logger.Info("Job handlers registered.", "count", len(reg.Types()), "types", reg.Types())

	exec := localexecutor.New(reg, a.config.WorkerCount)
	eng := engine.New(store, exec, broadcast.Multi(notifiers),
		engine.WithDefinitions(ldr),
		engine.WithLifetime(a.config.Lifetime),
	)
	exec.Start(ctx, eng)
	defer exec.Close()

	a.logger.Info("🚀 Starting chain run...")
	run, startErr := eng.Start(ctx, def, engine.StartOptions{
		Inputs:         a.config.Inputs,
		CorrelationKey: a.config.CorrelationKey,
		User:           a.config.User,
	})
	if run == nil {
		return nil, fmt.Errorf("failed to start chain: %w", startErr)
	}
	a.health.set(phaseRunning, run.ID())
	if startErr != nil {
		a.logger.Warn("Chain started with errors.", "run_id", run.ID(), "error", startErr)
	}

	waitErr := exec.Wait(ctx)
	res, err := summarize(context.WithoutCancel(ctx), run)
	if err != nil {
		return nil, err
	}
	if res.Done {
		a.health.set(phaseDone, res.RunID)
		a.logger.Info("🏁 Chain finished.", "run_id", res.RunID)
		return res, nil
	}

	a.health.set(phaseStalled, res.RunID)
	a.logger.Error("Chain stalled.", "run_id", res.RunID, "failed", res.Failed, "pending", res.Pending)
	return res, errors.Join(ErrStalled, startErr, waitErr, exec.Err())
}

func summarize(ctx context.Context, run *engine.Run) (*Result, error) {
	res := &Result{RunID: run.ID(), Failed: map[string]string{}}
	done, err := run.Done(ctx)
	if err != nil {
		return nil, fmt.Errorf("read run state: %w", err)
	}
	res.Done = done

	def := run.Definition()
	for _, id := range def.JobIDs() {
		st, err := run.State(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("read state of job %q: %w", id, err)
		}
		switch {
		case st.Error != "":
			res.Failed[id] = st.Error
		case !st.Dispatched:
			res.Pending = append(res.Pending, id)
		}
		if id == def.Done() && st.HasResponse {
			res.Response = st.Response
		}
	}
	return res, nil
}

// ListChains returns every chain name reachable from the search roots.
func (a *App) ListChains(ctx context.Context) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ldr, err := a.loader(ctx)
	if err != nil {
		return nil, err
	}
	return ldr.List(ctx)
}

// Export renders the configured chain in the configured format.
func (a *App) Export(ctx context.Context) ([]byte, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ldr, err := a.loader(ctx)
	if err != nil {
		return nil, err
	}
	def, err := ldr.Lookup(ctx, a.config.Chain)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	return export(def, a.config.Export)
}

func export(def *graph.Definition, format string) ([]byte, error) {
	switch format {
	case FormatHCL:
		return hcl_adapter.Write(def)
	case FormatYAML, "":
		return yaml_adapter.Write(def)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func (a *App) loader(ctx context.Context) (*loader.Loader, error) {
	sources := a.sources
	if len(sources) == 0 {
		var err error
		sources, err = loader.SourcesFromRoots(a.config.Paths, func() (*minio.Client, error) {
			cfg, err := objectstore.ConfigFromEnv()
			if err != nil {
				return nil, err
			}
			return objectstore.NewClient(cfg)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid search roots: %w", err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Search roots configured.", "roots", len(sources))
	return loader.New(sources...), nil
}

func (a *App) stateStore(ctx context.Context) (statestore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	logger := ctxlog.FromContext(ctx)
	switch a.config.Store {
	case StorePostgres:
		cfg, err := pgstore.ConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("postgres config: %w", err)
		}
		db, err := pgstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		store, err := pgstore.New(db, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Debug("Using postgres state store.", "table", cfg.Table)
		return store, nil
	default:
		logger.Debug("Using in-memory state store.")
		return inmemorystore.New(), nil
	}
}

func (a *App) dialSocketIO(ctx context.Context) (*broadcast.SocketIO, error) {
	cfg, err := broadcast.SocketIOConfigFromEnv(broadcast.SocketIOConfig{URL: a.config.SocketIOURL})
	if err != nil {
		return nil, fmt.Errorf("socket.io config: %w", err)
	}
	sio, err := broadcast.DialSocketIO(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { sio.Close(); return nil })
	return sio, nil
}

// optionalObjectClient returns a client when the object store is configured
// in the environment, nil otherwise.
func (a *App) optionalObjectClient(ctx context.Context) *minio.Client {
	cfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Object store not configured.", "reason", err)
		return nil
	}
	client, err := objectstore.NewClient(cfg)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Object store client unavailable.", "error", err)
		return nil
	}
	return client
}
