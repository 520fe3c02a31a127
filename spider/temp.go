package spider

// Temp为同一条请求链上的多个请求提供共享的临时数据，创建后只读

type Temper interface {
	Get(key string) interface{}
	Set(key string, value interface{}) error
}

// 用于管理临时缓存数据
type Temp struct {
	data map[string]interface{}
}

// 根据key获取临时缓存数据，不存在时返回nil
func (t *Temp) Get(key string) interface{} {
	if t == nil {
		return nil
	}
	return t.data[key]
}

// 将给定的键值存储到临时缓存数据中
func (t *Temp) Set(key string, value interface{}) error {
	if t.data == nil {
		t.data = make(map[string]interface{}, 8)
	}
	t.data[key] = value
	return nil
}

// 获取字符串类型的临时数据，类型不符或不存在时返回空串
func (t *Temp) GetString(key string) string {
	s, _ := t.Get(key).(string)
	return s
}

// 获取整型的临时数据
func (t *Temp) GetInt(key string) int {
	i, _ := t.Get(key).(int)
	return i
}

// 复制一份临时数据，用于派生新的请求链
func (t *Temp) Clone() *Temp {
	c := &Temp{}
	if t == nil {
		return c
	}
	for k, v := range t.data {
		_ = c.Set(k, v)
	}
	return c
}
