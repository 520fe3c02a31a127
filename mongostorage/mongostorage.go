package mongostorage

// MongoStore把爬虫产出的记录写入MongoDB，每种记录一个集合，集合名为记录的表名

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dszqbsm/planning/spider"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrNotRecord = errors.New("data cell does not carry a record")

// 记录实现该接口时按唯一键建立唯一索引，写入时覆盖同键的旧文档
type keyed interface {
	UniqueKey() []string
}

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	mu      sync.Mutex
	indexed map[string]struct{} // 已建立索引的集合
	options
}

/*
输入一个上下文和配置选项，输出一个MongoStore实例和一个错误

该方法用于连接MongoDB并通过ping检查连接是否可用
*/
func New(ctx context.Context, opts ...Option) (*MongoStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	cli, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(options.uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewWithDatabase(cli.Database(options.database), opts...)
	s.client = cli
	return s, nil
}

// 使用已有的数据库句柄创建MongoStore
func NewWithDatabase(db *mongo.Database, opts ...Option) *MongoStore {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &MongoStore{
		db:      db,
		indexed: make(map[string]struct{}),
		options: options,
	}
}

/*
输入一个或多个数据单元，输出一个error

该方法用于逐条写入记录：有唯一键的记录按唯一键upsert，其余记录直接插入；单条失败只记录日志并继续写入其他记录，最后汇总返回错误
*/
func (s *MongoStore) Save(dataCells ...*spider.DataCell) error {
	var errs []error
	for _, cell := range dataCells {
		rec := cell.Record()
		if rec == nil {
			errs = append(errs, fmt.Errorf("%w: task %s", ErrNotRecord, cell.GetTaskName()))
			continue
		}
		if err := s.save(rec); err != nil {
			s.logger.Error("save to mongo failed",
				zap.String("collection", rec.TableName()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MongoStore) save(rec spider.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	coll := s.db.Collection(rec.TableName())
	k, ok := rec.(keyed)
	if !ok {
		_, err := coll.InsertOne(ctx, rec)
		return err
	}

	if err := s.ensureIndex(ctx, coll, k.UniqueKey()); err != nil {
		return err
	}
	_, err := coll.ReplaceOne(ctx, keyFilter(rec, k.UniqueKey()), rec, mongooptions.Replace().SetUpsert(true))
	return err
}

// 每个集合只建一次唯一索引
func (s *MongoStore) ensureIndex(ctx context.Context, coll *mongo.Collection, key []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexed[coll.Name()]; ok {
		return nil
	}
	keys := bson.D{}
	for _, k := range key {
		keys = append(keys, bson.E{Key: k, Value: 1})
	}
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: mongooptions.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index on %s: %w", coll.Name(), err)
	}
	s.indexed[coll.Name()] = struct{}{}
	return nil
}

// 按列名从记录的值中取出唯一键对应的过滤条件
func keyFilter(rec spider.Record, key []string) bson.D {
	values := make(map[string]interface{}, len(rec.Columns()))
	vals := rec.Values()
	for i, c := range rec.Columns() {
		if i < len(vals) {
			values[c.Name] = vals[i]
		}
	}
	filter := bson.D{}
	for _, k := range key {
		filter = append(filter, bson.E{Key: k, Value: values[k]})
	}
	return filter
}

// 断开与MongoDB的连接
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
