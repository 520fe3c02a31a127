package idox

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/dszqbsm/planning/spider"
)

var (
	ErrNoFeatures     = errors.New("no features found")
	ErrNoGeometry     = errors.New("no geometry found")
	ErrNoProperties   = errors.New("no properties found")
	ErrNoKeyVal       = errors.New("no KEYVAL found")
	ErrKeyValMismatch = errors.New("KEYVAL mismatch")
)

// 申请的地块边界，PolygonGeoJSON为ArcGIS返回的第一个feature原文
type PlanningApplicationPolygon struct {
	MetaSourceURL  string `json:"meta_source_url" bson:"meta_source_url"`
	LPA            string `json:"lpa" bson:"lpa"`
	Reference      string `json:"reference" bson:"reference"`
	PolygonGeoJSON string `json:"polygon_geojson" bson:"polygon_geojson"`
}

// 按keyVal查询ArcGIS要素服务的地址，要求返回WGS84坐标的GeoJSON
func PolygonQueryURL(base, keyVal string) string {
	return base + "?f=geojson&returnGeometry=true&outFields=*&outSR=4326&where=KEYVAL%3D%27" +
		url.QueryEscape(keyVal) + "%27"
}

type featureCollection struct {
	Features []json.RawMessage `json:"features"`
}

type feature struct {
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

/*
输入ArcGIS响应、请求时的keyVal、请求地址、站点名和申请编号，输出地块记录和一个错误

该方法用于解析GeoJSON响应中的第一个feature，依次校验features、geometry、properties、KEYVAL是否存在以及KEYVAL是否与请求的keyVal一致，任一校验失败都返回对应的错误且不产生记录

KEYVAL只与请求时携带的keyVal比较，并不能证明二者来自同一条请求链
*/
func ParsePolygon(body []byte, keyVal, sourceURL, lpa, reference string) (*PlanningApplicationPolygon, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if len(fc.Features) == 0 || isNull(fc.Features[0]) {
		return nil, ErrNoFeatures
	}

	var f feature
	if err := json.Unmarshal(fc.Features[0], &f); err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	if isNull(f.Geometry) {
		return nil, ErrNoGeometry
	}
	if f.Properties == nil {
		return nil, ErrNoProperties
	}
	kv, ok := f.Properties["KEYVAL"]
	if !ok || kv == nil {
		return nil, ErrNoKeyVal
	}
	if fmt.Sprint(kv) != keyVal {
		return nil, fmt.Errorf("%w: got %v, want %s", ErrKeyValMismatch, kv, keyVal)
	}

	return &PlanningApplicationPolygon{
		MetaSourceURL:  sourceURL,
		LPA:            lpa,
		Reference:      reference,
		PolygonGeoJSON: string(fc.Features[0]),
	}, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

var polygonColumns = []spider.Column{
	{Name: "meta_source_url", Type: "TEXT"},
	{Name: "lpa", Type: "VARCHAR(255)"},
	{Name: "reference", Type: "VARCHAR(255)"},
	{Name: "polygon_geojson", Type: "LONGTEXT"},
}

func (p *PlanningApplicationPolygon) TableName() string { return "planning_application_polygons" }

func (p *PlanningApplicationPolygon) Columns() []spider.Column { return polygonColumns }

func (p *PlanningApplicationPolygon) UniqueKey() []string { return []string{"lpa", "reference"} }

func (p *PlanningApplicationPolygon) Values() []interface{} {
	return []interface{}{p.MetaSourceURL, p.LPA, p.Reference, p.PolygonGeoJSON}
}
