package server

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

const openAPIVersion = "3.0.3"

type openAPIDoc struct {
	OpenAPI string                          `json:"openapi"`
	Info    openAPIInfo                     `json:"info"`
	Paths   map[string]map[string]operation `json:"paths"`
}

type openAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type operation struct {
	Summary    string              `json:"summary,omitempty"`
	Parameters []parameter         `json:"parameters,omitempty"`
	Responses  map[string]response `json:"responses"`
}

type parameter struct {
	Name     string `json:"name"`
	In       string `json:"in"`
	Required bool   `json:"required"`
	Schema   schema `json:"schema"`
}

type schema struct {
	Type string `json:"type"`
}

type response struct {
	Description string `json:"description"`
}

// newOpenAPIDoc 根据已注册的路由生成文档，gin 的 :param 转为 {param}
func newOpenAPIDoc(routes gin.RoutesInfo) openAPIDoc {
	doc := openAPIDoc{
		OpenAPI: openAPIVersion,
		Info:    openAPIInfo{Title: "OpenGewe", Version: "1.0.0"},
		Paths:   make(map[string]map[string]operation, len(routes)),
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Path < routes[j].Path
	})
	for _, r := range routes {
		path, params := convertPath(r.Path)
		ops, ok := doc.Paths[path]
		if !ok {
			ops = make(map[string]operation, 1)
			doc.Paths[path] = ops
		}
		ops[strings.ToLower(r.Method)] = operation{
			Summary:    summaryOf(r.Method, r.Path),
			Parameters: params,
			Responses:  map[string]response{"200": {Description: "OK"}},
		}
	}
	return doc
}

func convertPath(p string) (string, []parameter) {
	segs := strings.Split(p, "/")
	var params []parameter
	for i, seg := range segs {
		if len(seg) < 2 || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		name := seg[1:]
		segs[i] = "{" + name + "}"
		params = append(params, parameter{Name: name, In: "path", Required: true, Schema: schema{Type: "string"}})
	}
	return strings.Join(segs, "/"), params
}

func summaryOf(method, path string) string {
	switch {
	case path == "/health":
		return "健康检查"
	case path == "/metrics":
		return "Prometheus 指标"
	case strings.HasPrefix(path, "/admin/devices"):
		return "设备信息"
	case strings.HasPrefix(path, "/admin/tasks"):
		return "任务状态"
	case method == "POST":
		return "网关回调"
	}
	return ""
}
