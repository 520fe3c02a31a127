package sqldb

// 定义了用于与MySQL数据库进行交互的功能，包括创建表、插入数据

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var ErrEmptyColumn = errors.New("column can not be empty")

// 为数据库操作统一了规范，包括创建表、插入数据
type DBer interface {
	/*
	   输入一个TableData实例，输出一个error

	   该方法用于创建一个MySQL数据库表，表已存在时不做任何修改
	*/
	CreateTable(t TableData) error
	/*
	   输入一个TableData实例，输出一个error

	   该方法用于批量插入数据，形如INSERT INTO `t`(`a`,`b`) VALUES (?,?),(?,?);，问号的数量为列数乘以行数，设置了唯一键时重复的行会被更新
	*/
	Insert(t TableData) error
}

// sql数据库实例
type Sqldb struct {
	options
	db *sql.DB
}

// 创建一个新的Sqldb实例并打开连接
func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	d := &Sqldb{}
	d.options = options
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}

// 使用已经打开的连接创建Sqldb实例
func NewFromDB(db *sql.DB, opts ...Option) *Sqldb {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Sqldb{options: options, db: db}
}

/*
无输入，输出一个error

该方法用于打开一个MySQL数据库连接，设置最大连接数、最大空闲连接数和连接存活时间，通过ping方法测试连接是否正常
*/
func (d *Sqldb) OpenDB() error {
	db, err := sql.Open("mysql", d.sqlUrl)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(d.maxOpenConns)
	db.SetMaxIdleConns(d.maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *Sqldb) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// 根据TableData中的列创建数据库表，UniqueKey不为空时建立唯一索引
func (d *Sqldb) CreateTable(t TableData) error {
	if len(t.ColumnNames) == 0 {
		return ErrEmptyColumn
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + quote(t.TableName) + " (")
	if t.AutoKey {
		b.WriteString("`id` INT(12) NOT NULL PRIMARY KEY AUTO_INCREMENT,")
	}
	for _, c := range t.ColumnNames {
		b.WriteString(quote(c.Title) + " " + c.Type + ",")
	}
	if len(t.UniqueKey) > 0 {
		keys := make([]string, 0, len(t.UniqueKey))
		for _, k := range t.UniqueKey {
			keys = append(keys, quote(k))
		}
		b.WriteString("UNIQUE KEY " + quote("uk_"+t.TableName) + " (" + strings.Join(keys, ",") + "),")
	}
	sql := strings.TrimSuffix(b.String(), ",") + ") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"

	d.logger.Debug("create table", zap.String("sql", sql))

	_, err := d.db.Exec(sql)
	return err
}

func (d *Sqldb) DropTable(t TableData) error {
	sql := "DROP TABLE IF EXISTS " + quote(t.TableName)

	d.logger.Debug("drop table", zap.String("sql", sql))

	_, err := d.db.Exec(sql)

	return err
}

func (d *Sqldb) Insert(t TableData) error {
	if len(t.ColumnNames) == 0 {
		return ErrEmptyColumn
	}
	if t.DataCount == 0 {
		return nil
	}
	cols := make([]string, 0, len(t.ColumnNames))
	for _, v := range t.ColumnNames {
		cols = append(cols, quote(v.Title))
	}
	sql := "INSERT INTO " + quote(t.TableName) + "(" + strings.Join(cols, ",") + ") VALUES "

	blank := ",(" + strings.Repeat(",?", len(t.ColumnNames))[1:] + ")" // 一行的占位符
	sql += strings.Repeat(blank, t.DataCount)[1:]
	if len(t.UniqueKey) > 0 {
		updates := make([]string, 0, len(cols))
		for _, c := range cols {
			updates = append(updates, c+"=VALUES("+c+")")
		}
		sql += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ",")
	}
	sql += ";"

	d.logger.Debug("insert table", zap.String("sql", sql), zap.Int("rows", t.DataCount))
	_, err := d.db.Exec(sql, t.Args...)
	return err
}

// 表示数据库表中的一个字段，包含字段名和字段类型
type Field struct {
	Title string
	Type  string
}

// 表示要操作的数据库表的数据
type TableData struct {
	TableName   string
	ColumnNames []Field       // 标题字段
	Args        []interface{} // 数据，按行依次展开
	DataCount   int           // 插入数据的行数
	AutoKey     bool
	UniqueKey   []string // 唯一索引的列名
}
