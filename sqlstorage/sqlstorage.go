package sqlstorage

// SqlStore把爬虫产出的记录按表分批缓存，攒够一批或爬取结束时批量写入MySQL

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dszqbsm/planning/spider"
	"github.com/dszqbsm/planning/sqldb"
	"go.uber.org/zap"
)

var ErrNotRecord = errors.New("data cell does not carry a record")

// 记录实现该接口时按唯一键建表并在重复时更新
type keyed interface {
	UniqueKey() []string
}

type SqlStore struct {
	mu         sync.Mutex
	dataDocker map[string][]*spider.DataCell // 表名 -> 待写入的数据单元
	db         sqldb.DBer
	Table      map[string]struct{} // 已创建的表
	options
}

// 连接MySQL并创建SqlStore
func New(opts ...Option) (*SqlStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	db, err := sqldb.New(
		sqldb.WithConnURL(options.sqlUrl),
		sqldb.WithLogger(options.logger),
	)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, opts...), nil
}

// 使用已有的数据库实例创建SqlStore
func NewWithDB(db sqldb.DBer, opts ...Option) *SqlStore {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchCount <= 0 {
		options.BatchCount = 1
	}
	return &SqlStore{
		dataDocker: make(map[string][]*spider.DataCell),
		db:         db,
		Table:      make(map[string]struct{}),
		options:    options,
	}
}

/*
输入一个或多个数据单元，输出一个error

该方法用于缓存数据单元：第一次遇到某张表时按记录的列建表，某张表的缓存达到批量数时立即写库；不携带记录的数据单元被拒绝
*/
func (s *SqlStore) Save(dataCells ...*spider.DataCell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, cell := range dataCells {
		rec := cell.Record()
		if rec == nil {
			errs = append(errs, fmt.Errorf("%w: task %s", ErrNotRecord, cell.GetTaskName()))
			continue
		}
		name := rec.TableName()
		if _, ok := s.Table[name]; !ok {
			err := s.db.CreateTable(sqldb.TableData{
				TableName:   name,
				ColumnNames: fields(rec),
				AutoKey:     true,
				UniqueKey:   uniqueKey(rec),
			})
			if err != nil {
				s.logger.Error("create table failed", zap.String("table", name), zap.Error(err))
				errs = append(errs, err)
				continue
			}
			s.Table[name] = struct{}{}
		}
		s.dataDocker[name] = append(s.dataDocker[name], cell)
		if len(s.dataDocker[name]) >= s.BatchCount {
			if err := s.flushTable(name); err != nil {
				s.logger.Error("insert data failed", zap.String("table", name), zap.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// 把所有表的缓存写入数据库，写入后无论成功与否都清空缓存
func (s *SqlStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for name := range s.dataDocker {
		if err := s.flushTable(name); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// 调用方持有锁
func (s *SqlStore) flushTable(name string) error {
	cells := s.dataDocker[name]
	if len(cells) == 0 {
		return nil
	}
	defer delete(s.dataDocker, name)

	var first spider.Record
	args := make([]interface{}, 0, len(cells)*16)
	for _, cell := range cells {
		rec := cell.Record()
		if rec == nil {
			return ErrNotRecord
		}
		if first == nil {
			first = rec
		}
		args = append(args, rec.Values()...)
	}

	return s.db.Insert(sqldb.TableData{
		TableName:   name,
		ColumnNames: fields(first),
		Args:        args,
		DataCount:   len(cells),
		UniqueKey:   uniqueKey(first),
	})
}

func fields(rec spider.Record) []sqldb.Field {
	var columnNames []sqldb.Field
	for _, c := range rec.Columns() {
		columnNames = append(columnNames, sqldb.Field{Title: c.Name, Type: c.Type})
	}
	return columnNames
}

func uniqueKey(rec spider.Record) []string {
	if k, ok := rec.(keyed); ok {
		return k.UniqueKey()
	}
	return nil
}

// 关闭底层数据库连接，Close前应先Flush
func (s *SqlStore) Close() error {
	if c, ok := s.db.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
