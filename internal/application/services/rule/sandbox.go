package rule

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// CondEnv 自定义条件表达式的求值环境。
// 表达式必须返回布尔值，例如:
//
//	len(string(Params.text ?? "")) > 100
//	Coord("element") != nil && Coord("element")[1] > 900
type CondEnv struct {
	Params  map[string]any `expr:"Params"`
	Context map[string]any `expr:"Context"`
}

// Coord 读取坐标参数并归一化为[x, y]，参数缺失或形状不对返回nil
func (e CondEnv) Coord(name string) []float64 {
	v, ok := e.Params[name]
	if !ok {
		return nil
	}
	x, y, ok := coordPair(v)
	if !ok {
		return nil
	}
	return []float64{x, y}
}

// HasParam 判断参数是否存在且非空
func (e CondEnv) HasParam(name string) bool {
	v, ok := e.Params[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

// Text 读取字符串参数，缺失返回空串
func (e CondEnv) Text(name string) string {
	s, _ := e.Params[name].(string)
	return s
}

// Matches 对参数值做正则匹配
func (e CondEnv) Matches(name string, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(e.Text(name))
}

// ActionEnv 自定义动作表达式的求值环境。
// 表达式必须返回Verdict，通过环境方法构造:
//
//	Params.app == "微信" ? Skip("应用已在前台") : Continue()
//	Modified(Merge(Params, {"duration": "1 seconds"}), "使用默认等待时间")
type ActionEnv struct {
	CondEnv
	Rule map[string]any `expr:"Rule"`
}

func (e ActionEnv) Continue() Verdict { return Continue() }

func (e ActionEnv) Skip(message string) Verdict { return Skip(message) }

func (e ActionEnv) Abort(message string) Verdict { return Abort(message) }

func (e ActionEnv) Modified(params map[string]any, message string) Verdict {
	return Modified(entities.ActionParams(params).Clone(), message)
}

// Merge 返回base的副本并覆盖overrides中的键
func (e ActionEnv) Merge(base map[string]any, overrides map[string]any) map[string]any {
	out := entities.ActionParams(base).Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Clamp 将数值限制在[lo, hi]范围内
func (e ActionEnv) Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// coordPair 从任意JSON解码形态中提取坐标对
func coordPair(v any) (x, y float64, ok bool) {
	switch val := v.(type) {
	case []any:
		if len(val) < 2 {
			return 0, 0, false
		}
		x, okX := toFloat(val[0])
		y, okY := toFloat(val[1])
		return x, y, okX && okY
	case []float64:
		if len(val) < 2 {
			return 0, 0, false
		}
		return val[0], val[1], true
	case []int:
		if len(val) < 2 {
			return 0, 0, false
		}
		return float64(val[0]), float64(val[1]), true
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
