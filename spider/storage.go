package spider

// 数据单元
type DataCell struct {
	Task *Task
	Data map[string]interface{}
}

// 可以落库的数据记录
type Record interface {
	TableName() string
	Columns() []Column
	Values() []interface{}
}

// 记录的一列，Type为SQL列类型
type Column struct {
	Name string
	Type string
}

// 获取数据单元对应的记录，Data字段不是Record时返回nil
func (d *DataCell) Record() Record {
	r, _ := d.Data["Data"].(Record)
	return r
}

// 获取数据单元的表名，优先使用记录自身的表名
func (d *DataCell) GetTableName() string {
	if r := d.Record(); r != nil {
		return r.TableName()
	}
	return d.GetTaskName()
}

// 获取数据单元的任务名
func (d *DataCell) GetTaskName() string {
	name, _ := d.Data["Task"].(string)
	return name
}

// 定义了存储引擎的统一规范
type DataRepository interface {
	Save(datas ...*DataCell) error
}

// 带缓冲的存储引擎在爬取结束时需要刷盘
type Flusher interface {
	Flush() error
}
