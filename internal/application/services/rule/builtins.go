package rule

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// 屏幕归一化坐标范围
const (
	coordMin = 0
	coordMax = 1000
)

var chinesePattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)

func registerBuiltinConditions(r *Registry) {
	// Launch 动作条件
	r.registerCondition("launch_app_not_installed", checkAppNotMapped)
	r.registerCondition("launch_app_in_foreground", checkAppInForeground)
	r.registerCondition("launch_app_not_mapped", checkAppNotMapped)

	// Tap 动作条件
	r.registerCondition("tap_out_of_bounds", checkCoordinatesOutOfBounds)
	r.registerCondition("tap_rapid_click", checkRapidClick)
	r.registerCondition("tap_sensitive_area", checkSensitiveArea)

	// Type 动作条件
	r.registerCondition("type_contains_chinese", checkContainsChinese)
	r.registerCondition("type_no_focus", checkNoFocus)
	r.registerCondition("type_long_text", checkLongText)

	// Swipe 动作条件
	r.registerCondition("swipe_same_point", checkSwipeSamePoint)
	r.registerCondition("swipe_short_distance", checkSwipeShortDistance)

	// Wait 动作条件
	r.registerCondition("wait_no_duration", checkWaitNoDuration)
	r.registerCondition("wait_long_duration", checkWaitLongDuration)
}

func registerBuiltinActions(r *Registry) {
	r.registerAction("abort_with_error", actionAbortWithError)
	r.registerAction("skip_success", actionSkipSuccess)
	r.registerAction("clip_coordinates", actionClipCoordinates)
	r.registerAction("show_confirmation", actionShowConfirmation)
	r.registerAction("merge_clicks", actionMergeClicks)
	r.registerAction("use_broadcast_input", actionUseBroadcastInput)
	r.registerAction("split_text", actionSplitText)
	r.registerAction("convert_to_tap", actionConvertToTap)
	r.registerAction("extend_swipe", actionExtendSwipe)
	r.registerAction("default_wait", actionDefaultWait)
}

// ========== 条件检查器 ==========

// checkAppNotMapped 应用名称不在映射表中（映射表由上下文注入）
func checkAppNotMapped(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	app, _ := params["app"].(string)
	if app == "" {
		return false
	}
	packages, ok := ctx["app_packages"].(map[string]string)
	if !ok {
		return false
	}
	_, mapped := packages[app]
	return !mapped
}

// checkAppInForeground 需要查询设备前台应用，未注入时不触发
func checkAppInForeground(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	app, _ := params["app"].(string)
	foreground, _ := ctx["foreground_app"].(string)
	return app != "" && foreground != "" && app == foreground
}

// checkCoordinatesOutOfBounds 坐标超出归一化范围 [0, 1000]
func checkCoordinatesOutOfBounds(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	x, y, ok := coordPair(params["element"])
	if !ok {
		return false
	}
	return x < coordMin || x > coordMax || y < coordMin || y > coordMax
}

// checkRapidClick 300ms内距上次点击不足20像素
func checkRapidClick(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	lastX, lastY, okPos := coordPair(ctx["last_tap_position"])
	lastTime, okTime := ctx["last_tap_time"].(time.Time)
	if !okPos || !okTime {
		return false
	}
	x, y, ok := coordPair(params["element"])
	if !ok {
		return false
	}
	distance := math.Hypot(x-lastX, y-lastY)
	return distance < 20 && time.Since(lastTime) < 300*time.Millisecond
}

// checkSensitiveArea message参数的存在标记敏感操作
func checkSensitiveArea(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	_, ok := params["message"]
	return ok
}

func checkContainsChinese(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	text, _ := params["text"].(string)
	return chinesePattern.MatchString(text)
}

// checkNoFocus 需要实际查询UI状态，暂不触发
func checkNoFocus(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	return false
}

func checkLongText(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	text, _ := params["text"].(string)
	return len([]rune(text)) > 100
}

func checkSwipeSamePoint(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	sx, sy, okS := coordPair(params["start"])
	ex, ey, okE := coordPair(params["end"])
	if !okS || !okE {
		return false
	}
	return sx == ex && sy == ey
}

// checkSwipeShortDistance 滑动距离小于50（归一化坐标）
func checkSwipeShortDistance(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	sx, sy, okS := coordPair(params["start"])
	ex, ey, okE := coordPair(params["end"])
	if !okS || !okE {
		return false
	}
	return math.Hypot(ex-sx, ey-sy) < 50
}

func checkWaitNoDuration(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	v, ok := params["duration"]
	if !ok || v == nil {
		return true
	}
	s, isStr := v.(string)
	return isStr && s == ""
}

func checkWaitLongDuration(params entities.ActionParams, ctx entities.ExecutionContext) bool {
	d, ok := parseDuration(params["duration"])
	return ok && d > 10*time.Second
}

// parseDuration 解析"2 seconds"形式的时长
func parseDuration(v any) (time.Duration, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		if f, okNum := toFloat(v); okNum {
			return time.Duration(f * float64(time.Second)), true
		}
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "seconds"), "second"))
	f, okF := toFloat(strings.TrimSpace(s))
	if !okF {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

// ========== 动作执行器 ==========

func actionAbortWithError(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	condition := "规则条件满足"
	if r != nil && r.Condition != "" {
		condition = r.Condition
	}
	return Abort("规则阻止执行: " + condition)
}

func actionSkipSuccess(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	condition := "规则条件满足"
	if r != nil && r.Condition != "" {
		condition = r.Condition
	}
	return Skip("规则跳过: " + condition)
}

// actionClipCoordinates 将element/start/end裁剪到[0, 1000]
func actionClipCoordinates(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	modified := params.Clone()
	for _, key := range []string{"element", "start", "end"} {
		x, y, ok := coordPair(modified[key])
		if !ok {
			continue
		}
		modified[key] = []float64{clampCoord(x), clampCoord(y)}
	}
	return Modified(modified, "坐标已裁剪到有效范围")
}

func clampCoord(v float64) float64 {
	return math.Max(coordMin, math.Min(coordMax, v))
}

// actionShowConfirmation 确认对话框由上层回调处理，这里保证message存在
func actionShowConfirmation(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	if _, ok := params["message"]; ok {
		return Continue()
	}
	modified := params.Clone()
	modified["message"] = "敏感操作，请确认"
	return Modified(modified, "")
}

// actionMergeClicks 需要点击历史支持，暂不处理
func actionMergeClicks(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	return Continue()
}

// actionUseBroadcastInput 广播输入已是默认行为
func actionUseBroadcastInput(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	return Continue()
}

// actionSplitText 标记长文本需要分段，分段逻辑在分发器中实现
func actionSplitText(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	modified := params.Clone()
	modified["_split_text"] = true
	return Modified(modified, "")
}

// actionConvertToTap 零距离滑动转换为点击
func actionConvertToTap(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	sx, sy, ok := coordPair(params["start"])
	if !ok {
		sx, sy = 500, 500
	}
	modified := entities.ActionParams{
		"action":                "Tap",
		"element":               []float64{sx, sy},
		"_converted_from_swipe": true,
	}
	return Modified(modified, "滑动距离为0，已转换为点击")
}

// actionExtendSwipe 滑动距离不足100时沿原方向延长到100
func actionExtendSwipe(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	modified := params.Clone()
	sx, sy, okS := coordPair(modified["start"])
	ex, ey, okE := coordPair(modified["end"])
	if okS && okE {
		dx := ex - sx
		dy := ey - sy
		distance := math.Hypot(dx, dy)
		if distance > 0 && distance < 100 {
			scale := 100 / distance
			modified["end"] = []float64{
				math.Round(sx + dx*scale),
				math.Round(sy + dy*scale),
			}
		}
	}
	return Modified(modified, "滑动距离已增加")
}

// actionDefaultWait 未指定等待时长时使用默认1秒
func actionDefaultWait(params entities.ActionParams, ctx entities.ExecutionContext, r *entities.Rule) Verdict {
	modified := params.Clone()
	modified["duration"] = "1 seconds"
	return Modified(modified, "使用默认等待时间1秒")
}
