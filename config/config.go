package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dszqbsm/planning/idox"
	"github.com/dszqbsm/planning/limiter"
	"github.com/dszqbsm/planning/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoSite        = errors.New("site not configured")
	ErrInvalidConfig = errors.New("invalid config")
)

// 存储类型
const (
	StorageNone  = "none"
	StorageMySQL = "mysql"
	StorageMongo = "mongo"
)

type Config struct {
	Log     log.Config `yaml:"log"`
	Fetcher Fetcher    `yaml:"fetcher"`
	Storage Storage    `yaml:"storage"`
	Sites   []Site     `yaml:"sites"`
	Crawl   Crawl      `yaml:"crawl"`
}

type Fetcher struct {
	Type      string         `yaml:"type"`    // base、browser或colly
	Timeout   int            `yaml:"timeout"` // 毫秒
	Proxy     []string       `yaml:"proxy"`
	WaitTime  int64          `yaml:"waitTime"` // 随机休眠上限，毫秒
	UserAgent string         `yaml:"userAgent"`
	Retry     bool           `yaml:"retry"`
	WorkCount int            `yaml:"workCount"`
	Limits    []limiter.Rule `yaml:"limits"`
}

type Storage struct {
	Type       string `yaml:"type"`
	SqlURL     string `yaml:"sqlURL"`
	BatchCount int    `yaml:"batchCount"`
	Mongo      Mongo  `yaml:"mongo"`
}

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type Site struct {
	Name           string   `yaml:"name"`
	StartURL       string   `yaml:"startURL"`
	AllowedDomains []string `yaml:"allowedDomains"`
	ArcGISURL      string   `yaml:"arcgisURL"`
}

type Crawl struct {
	StartDate       string `yaml:"startDate"` // 2006-01-02，为空时为今年1月1日
	EndDate         string `yaml:"endDate"`   // 为空时为今天
	Status          string `yaml:"status"`
	Limit           int    `yaml:"limit"`
	ScrapeDocuments bool   `yaml:"scrapeDocuments"`
	ScrapeComments  bool   `yaml:"scrapeComments"`
	ScrapePolygon   bool   `yaml:"scrapePolygon"`
}

var defaultConfig = Config{
	Log: log.Config{Level: "info"},
	Fetcher: Fetcher{
		Type:      "browser",
		Timeout:   10000,
		WorkCount: 4,
	},
	Storage: Storage{
		Type:       StorageNone,
		BatchCount: 100,
		Mongo: Mongo{
			URI:      "mongodb://127.0.0.1:27017",
			Database: "planning",
		},
	},
}

/*
输入配置文件路径，输出配置和一个错误

该方法用于加载配置：先加载.env文件中的环境变量，再展开配置文件中的${VAR}引用，解析yaml后补齐默认值并校验
*/
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return Parse(data)
}

// 解析yaml格式的配置内容
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// yaml中显式写成零值的字段退回到默认值
func (c *Config) fill() {
	if c.Fetcher.Timeout <= 0 {
		c.Fetcher.Timeout = defaultConfig.Fetcher.Timeout
	}
	if c.Fetcher.WorkCount <= 0 {
		c.Fetcher.WorkCount = defaultConfig.Fetcher.WorkCount
	}
	c.Storage.Type = strings.ToLower(c.Storage.Type)
	if c.Storage.Type == "" {
		c.Storage.Type = StorageNone
	}
	if c.Storage.BatchCount <= 0 {
		c.Storage.BatchCount = defaultConfig.Storage.BatchCount
	}
}

// 校验站点和存储配置，日期与状态在生成搜索条件时校验
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sites))
	for i, s := range c.Sites {
		if s.Name == "" || s.StartURL == "" {
			return fmt.Errorf("%w: sites[%d] needs name and startURL", ErrInvalidConfig, i)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: duplicate site %s", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	switch c.Storage.Type {
	case StorageNone:
	case StorageMySQL:
		if c.Storage.SqlURL == "" {
			return fmt.Errorf("%w: mysql storage needs sqlURL", ErrInvalidConfig)
		}
	case StorageMongo:
		if c.Storage.Mongo.URI == "" {
			return fmt.Errorf("%w: mongo storage needs uri", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage type %q", ErrInvalidConfig, c.Storage.Type)
	}
	return nil
}

// 按名称查找站点
func (c *Config) Site(name string) (idox.Site, error) {
	for _, s := range c.Sites {
		if s.Name == name {
			return idox.Site{
				Name:           s.Name,
				StartURL:       s.StartURL,
				AllowedDomains: s.AllowedDomains,
				ArcGISURL:      s.ArcGISURL,
			}, nil
		}
	}
	return idox.Site{}, fmt.Errorf("%w: %s", ErrNoSite, name)
}

/*
输入当前时间，输出搜索条件和一个错误

该方法用于把crawl段的日期和状态转换为搜索条件，日期格式错误、状态未知或结束日期早于开始日期时直接返回错误
*/
func (c *Config) Criteria(now time.Time) (idox.SearchCriteria, error) {
	def := idox.DefaultSearchCriteria(now)
	start, end := def.Start(), def.End()

	var err error
	if c.Crawl.StartDate != "" {
		if start, err = idox.ParseConfigDate(c.Crawl.StartDate); err != nil {
			return idox.SearchCriteria{}, fmt.Errorf("startDate: %w", err)
		}
	}
	if c.Crawl.EndDate != "" {
		if end, err = idox.ParseConfigDate(c.Crawl.EndDate); err != nil {
			return idox.SearchCriteria{}, fmt.Errorf("endDate: %w", err)
		}
	}

	status := idox.StatusAll
	if c.Crawl.Status != "" {
		if status, err = idox.ParseApplicationStatus(c.Crawl.Status); err != nil {
			return idox.SearchCriteria{}, err
		}
	}
	return idox.NewSearchCriteria(start, end, status)
}

func (c *Config) Toggles() idox.Toggles {
	return idox.Toggles{
		Documents: c.Crawl.ScrapeDocuments,
		Comments:  c.Crawl.ScrapeComments,
		Polygon:   c.Crawl.ScrapePolygon,
	}
}

func (f Fetcher) TimeoutDuration() time.Duration {
	return time.Duration(f.Timeout) * time.Millisecond
}
