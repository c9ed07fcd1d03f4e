package platform

import (
	"context"
	"fmt"

	"github.com/saferoomai/feedback/pkg/adapters/fs"
	"github.com/saferoomai/feedback/pkg/adapters/memory"
	"github.com/saferoomai/feedback/pkg/adapters/redis"
	"github.com/saferoomai/feedback/pkg/adapters/sql"
	"github.com/saferoomai/feedback/pkg/core"
)

// OpenStore builds and initializes the store selected by opts.
func OpenStore(ctx context.Context, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return openStore(ctx, o)
}

func openStore(ctx context.Context, o *options) (core.Store, error) {
	if o.store != nil {
		return o.store, nil
	}

	var (
		store core.Store
		err   error
	)
	switch o.adapter {
	case AdapterFS, "":
		store = initFS(o)
	case AdapterMemory:
		store = memory.New(o.logger)
	case AdapterRedis:
		store = initRedis(o)
	case AdapterSQL:
		store, err = initSQL(o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if initializer, ok := store.(core.Initializer); ok {
		if err := initializer.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// initFS handles path resolution and safety rules for the filesystem adapter.
func initFS(o *options) *fs.Store {
	path, _ := o.config["store_path"].(string)
	tempDir, _ := o.config["temp_dir"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	// Read-only stores cannot damage anything, so they bypass the sandbox.
	bypassSafety := isReadOnly || !devSafety
	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveStorePath(path, useTemp)

	if o.logger != nil {
		if useTemp {
			o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolvedPath)
		} else if IsDevRun() && !isReadOnly {
			o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolvedPath)
		}
	}

	return fs.NewStore(fs.Config{
		Path:         resolvedPath,
		MustExist:    mustExist,
		ReadOnly:     isReadOnly,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})
}

func initRedis(o *options) *redis.Store {
	addr, _ := o.config["redis_addr"].(string)
	password, _ := o.config["redis_password"].(string)
	db, _ := o.config["redis_db"].(int)
	prefix, _ := o.config["redis_prefix"].(string)

	return redis.Dial(redis.Config{
		Addr:     addr,
		Password: password,
		DB:       db,
		Prefix:   prefix,
		Logger:   o.logger,
	})
}

func initSQL(o *options) (*sql.Store, error) {
	driver, _ := o.config["sql_driver"].(string)
	dsn, _ := o.config["sql_dsn"].(string)
	if dsn == "" {
		return nil, fmt.Errorf("%w: sql adapter requires a DSN", core.ErrInvalidArgument)
	}
	return sql.Open(sql.Config{Driver: driver, DSN: dsn, Logger: o.logger})
}
