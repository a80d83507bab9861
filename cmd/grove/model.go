package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pbanos/grove/config"
	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/server"
	"github.com/pbanos/grove/tree"
	"github.com/pbanos/grove/tree/redisstore"
)

type redisCmdConfig struct {
	addr     string
	password string
	db       int
	prefix   string
}

type modelCmdConfig struct {
	*rootCmdConfig
	treeInput   string
	forestInput string
	redisKey    string
	classType   string
	workers     int
	redis       redisCmdConfig
	ctx         context.Context
	cancelFunc  context.CancelFunc
}

func (rcc *redisCmdConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&(rcc.addr), "redis", "", "address (host:port) of the redis DB models are stored on")
	cmd.Flags().StringVar(&(rcc.password), "redis-password", "", "password of the redis DB")
	cmd.Flags().IntVar(&(rcc.db), "redis-db", 0, "number of the redis DB")
	cmd.Flags().StringVar(&(rcc.prefix), "redis-prefix", config.DefaultRedisPrefix, "prefix of the keys of the models stored on redis")
}

func (rcc *redisCmdConfig) store() (*redisstore.Store, *redis.Client) {
	rc := redis.NewClient(&redis.Options{
		Addr:     rcc.addr,
		Password: rcc.password,
		DB:       rcc.db,
	})
	return redisstore.New(rc, rcc.prefix), rc
}

func (mcc *modelCmdConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&(mcc.treeInput), "tree", "t", "", "path to a file with a tree exported as text")
	cmd.Flags().StringVarP(&(mcc.forestInput), "forest", "f", "", "path to a tar or tar.gz archive with a tree export per entry")
	cmd.Flags().StringVarP(&(mcc.redisKey), "key", "k", "", "name of a model stored on redis")
	cmd.Flags().StringVarP(&(mcc.classType), "class-type", "c", config.ClassString, "type of the predicted classes: bool, int, float or string")
	cmd.Flags().IntVarP(&(mcc.workers), "workers", "w", 0, "number of goroutines to spread the trees of a forest on")
	mcc.redis.addFlags(cmd)
}

func (mcc *modelCmdConfig) model() *config.Model {
	return &config.Model{
		Name:      "cli",
		Tree:      mcc.treeInput,
		Forest:    mcc.forestInput,
		RedisKey:  mcc.redisKey,
		ClassType: mcc.classType,
	}
}

func (mcc *modelCmdConfig) Validate() error {
	if err := mcc.model().Validate(); err != nil {
		return err
	}
	if mcc.redisKey != "" && mcc.redis.addr == "" {
		return fmt.Errorf("required redis flag was not set")
	}
	if mcc.workers < 0 {
		return fmt.Errorf("invalid number of workers %d", mcc.workers)
	}
	return nil
}

func (mcc *modelCmdConfig) load() (server.Model, error) {
	var store *redisstore.Store
	if mcc.redisKey != "" {
		var rc *redis.Client
		store, rc = mcc.redis.store()
		defer rc.Close()
	}
	return loadModel(mcc.Context(), mcc.model(), store, forest.WithWorkers(mcc.workers), forest.WithLogger(mcc.logger))
}

func (mcc *modelCmdConfig) setContextAndCancelFunc() {
	if mcc.ctx == nil {
		mcc.ctx, mcc.cancelFunc = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
}

func (mcc *modelCmdConfig) Context() context.Context {
	mcc.setContextAndCancelFunc()
	return mcc.ctx
}

func (mcc *modelCmdConfig) ContextCancelFunc() context.CancelFunc {
	mcc.setContextAndCancelFunc()
	return mcc.cancelFunc
}

/*
loadModel takes a context, a model configuration, a store (only needed for
models on redis) and forest options and returns the model loaded from its
source with the decoder for its class type.
*/
func loadModel(ctx context.Context, m *config.Model, store *redisstore.Store, opts ...forest.Option) (server.Model, error) {
	switch m.ClassType {
	case config.ClassBool:
		return load(ctx, m, store, tree.Bool, opts...)
	case config.ClassInt:
		return load(ctx, m, store, tree.Int, opts...)
	case config.ClassFloat:
		return load(ctx, m, store, tree.Float, opts...)
	case config.ClassString:
		return load(ctx, m, store, tree.String, opts...)
	}
	return nil, fmt.Errorf("loading model %s: unknown class type %q", m.Name, m.ClassType)
}

func load[T comparable](ctx context.Context, m *config.Model, store *redisstore.Store, dec tree.Decoder[T], opts ...forest.Option) (server.Model, error) {
	switch {
	case m.Tree != "":
		t, err := tree.ParseFile(m.Tree, dec)
		if err != nil {
			return nil, err
		}
		return server.TreeModel(t), nil
	case m.Forest != "":
		f, err := forest.ReadFile(ctx, m.Forest, dec, opts...)
		if err != nil {
			return nil, err
		}
		return server.ForestModel(f), nil
	case m.RedisKey != "" && store != nil:
		f, err := redisstore.LoadForest(ctx, store, m.RedisKey, dec, opts...)
		if err != nil {
			return nil, err
		}
		if f.Len() == 1 {
			return server.TreeModel(f.Trees()[0]), nil
		}
		return server.ForestModel(f), nil
	}
	return nil, fmt.Errorf("loading model %s: no source available", m.Name)
}
