package spider

import (
	"bytes"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// 解析函数的上下文：将响应内容和当前请求封装在一起
type Context struct {
	Body []byte   // 响应内容的字节流
	Req  *Request // 当前请求
	URL  *url.URL // 跟随重定向后的最终地址

	doc *goquery.Document
}

/*
无输入，输出一个goquery文档和一个错误

该方法用于将响应内容解析为HTML文档，解析结果会被缓存，同一个上下文多次调用只解析一次
*/
func (c *Context) Doc() (*goquery.Document, error) {
	if c.doc != nil {
		return c.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(c.Body))
	if err != nil {
		return nil, err
	}
	doc.Url = c.PageURL()
	c.doc = doc
	return doc, nil
}

// 返回当前页面的地址，没有最终地址时退回到请求地址
func (c *Context) PageURL() *url.URL {
	if c.URL != nil {
		return c.URL
	}
	u, err := url.Parse(c.Req.Url)
	if err != nil {
		return &url.URL{}
	}
	return u
}

// 将页面中的相对链接解析为绝对地址
func (c *Context) AbsURL(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return c.PageURL().ResolveReference(ref).String(), nil
}

/*
输入一个数据，输出一个数据单元

该方法用于将解析到的数据封装成一个DataCell对象，并添加任务名、规则名、地址和时间等元信息
*/
func (c *Context) Output(data interface{}) *DataCell {
	res := &DataCell{
		Task: c.Req.Task,
	}
	res.Data = make(map[string]interface{})
	res.Data["Task"] = c.Req.Task.Name
	res.Data["Rule"] = c.Req.RuleName
	res.Data["Data"] = data
	res.Data["Url"] = c.PageURL().String()
	res.Data["Time"] = time.Now().Format("2006-01-02 15:04:05")
	return res
}
