package crawl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dszqbsm/planning/api"
	"github.com/dszqbsm/planning/config"
	"github.com/dszqbsm/planning/idox"
	"github.com/dszqbsm/planning/limiter"
	"github.com/dszqbsm/planning/log"
	"github.com/dszqbsm/planning/mongostorage"
	"github.com/dszqbsm/planning/proxy"
	"github.com/dszqbsm/planning/spider"
	"github.com/dszqbsm/planning/spider/workerengine"
	"github.com/dszqbsm/planning/sqlstorage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var CrawlCmd = newCommand()

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "crawl planning applications from idox portals.",
		Long:  "crawl planning applications from the configured idox portals, one task per site.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd)
		},
	}

	cmd.Flags().String("config", "config.yaml", "set config file")
	cmd.Flags().StringSlice("site", nil, "sites to crawl, all configured sites when empty")
	cmd.Flags().String("start-date", "", "override crawl.startDate (2006-01-02)")
	cmd.Flags().String("end-date", "", "override crawl.endDate (2006-01-02)")
	cmd.Flags().String("status", "", "override crawl.status")
	cmd.Flags().Int("limit", 0, "override crawl.limit, 0 means unlimited")
	cmd.Flags().String("http", "", "set HTTP status listen address, disabled when empty")
	return cmd
}

/*
输入cobra命令，输出一个错误

该方法用于执行一次爬取：加载配置和日志，创建采集器、限速器与存储器，为每个站点创建任务，
启动引擎直到没有在途请求或收到退出信号，最后刷新并关闭存储器
*/
func Run(cmd *cobra.Command) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	siteNames, _ := flags.GetStringSlice("site")
	httpAddr, _ := flags.GetString("http")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	logger, closer, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	criteria, err := cfg.Criteria(time.Now())
	if err != nil {
		logger.Error("invalid search criteria", zap.Error(err))
		return err
	}

	// 采集器配置
	var p proxy.ProxyFunc
	if len(cfg.Fetcher.Proxy) > 0 {
		if p, err = proxy.RoundRobinProxySwitcher(cfg.Fetcher.Proxy...); err != nil {
			logger.Error("RoundRobinProxySwitcher failed", zap.Error(err))
			return err
		}
	}
	f := spider.NewFetchService(spider.ParseFetchType(cfg.Fetcher.Type), spider.FetchOptions{
		Timeout:   cfg.Fetcher.TimeoutDuration(),
		Proxy:     p,
		UserAgent: cfg.Fetcher.UserAgent,
		Logger:    logger.Named("fetcher"),
	})

	storage, closeStorage, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("create storage failed", zap.Error(err))
		return err
	}
	defer closeStorage()

	sites, err := selectSites(cfg, siteNames)
	if err != nil {
		return err
	}

	var (
		seeds    []*spider.Task
		progress []api.Progress
	)
	for _, site := range sites {
		s, err := idox.NewSpider(site, criteria,
			idox.WithLogger(logger),
			idox.WithLimit(cfg.Crawl.Limit),
			idox.WithToggles(cfg.Toggles()),
		)
		if err != nil {
			return err
		}
		// 每个站点单独限速
		seeds = append(seeds, s.Task(
			spider.WithWaitTime(cfg.Fetcher.WaitTime),
			spider.WithTimeout(cfg.Fetcher.TimeoutDuration()),
			spider.WithProxy(p),
			spider.WithLimit(limiter.FromRules(cfg.Fetcher.Limits...)),
		))
		progress = append(progress, s)
	}

	engine, err := workerengine.NewWorkerService(
		workerengine.WithFetcher(f),
		workerengine.WithStorage(storage),
		workerengine.WithLogger(logger.Named("engine")),
		workerengine.WithWorkCount(cfg.Fetcher.WorkCount),
		workerengine.WithSeeds(seeds),
		workerengine.WithRetry(cfg.Fetcher.Retry),
	)
	if err != nil {
		return err
	}

	if httpAddr != "" {
		srv := api.NewServer(engine, progress, logger.Named("api"))
		go func() {
			if err := srv.Run(ctx, httpAddr); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	err = engine.Run(ctx)
	stats := engine.Stats()
	logger.Info("crawl finished",
		zap.Int64("requests", stats.Requests),
		zap.Int64("failures", stats.Failures),
		zap.Int64("items", stats.Items),
		zap.Duration("elapsed", time.Since(start)),
	)
	if errors.Is(err, context.Canceled) {
		logger.Warn("crawl interrupted")
		return nil
	}
	return err
}

// 命令行参数覆盖配置文件中的值，只有显式设置的参数才生效
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("start-date") {
		cfg.Crawl.StartDate, _ = flags.GetString("start-date")
	}
	if flags.Changed("end-date") {
		cfg.Crawl.EndDate, _ = flags.GetString("end-date")
	}
	if flags.Changed("status") {
		cfg.Crawl.Status, _ = flags.GetString("status")
	}
	if flags.Changed("limit") {
		cfg.Crawl.Limit, _ = flags.GetInt("limit")
	}
}

// 按名称选出要爬取的站点，names为空时选出全部站点
func selectSites(cfg *config.Config, names []string) ([]idox.Site, error) {
	if len(names) == 0 {
		for _, s := range cfg.Sites {
			names = append(names, s.Name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no sites configured", config.ErrNoSite)
	}

	sites := make([]idox.Site, 0, len(names))
	for _, name := range names {
		site, err := cfg.Site(name)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

/*
输入一个上下文、存储配置和日志器，输出存储器、关闭函数和一个错误

该方法用于按配置创建存储器，none时返回nil，由引擎把数据项打印到日志
*/
func newStorage(ctx context.Context, cfg config.Storage, logger *zap.Logger) (spider.DataRepository, func(), error) {
	switch cfg.Type {
	case config.StorageMySQL:
		s, err := sqlstorage.New(
			sqlstorage.WithSqlUrl(cfg.SqlURL),
			sqlstorage.WithLogger(logger.Named("sqlDB")),
			sqlstorage.WithBatchCount(cfg.BatchCount),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("close mysql failed", zap.Error(err))
			}
		}, nil
	case config.StorageMongo:
		s, err := mongostorage.New(ctx,
			mongostorage.WithURI(cfg.Mongo.URI),
			mongostorage.WithDatabase(cfg.Mongo.Database),
			mongostorage.WithLogger(logger.Named("mongo")),
		)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				logger.Error("close mongo failed", zap.Error(err))
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}
