package device

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/config"
	"github.com/easayliu/phone-task-orchestrator/internal/infrastructure/ratelimit"
	"github.com/easayliu/phone-task-orchestrator/internal/shared/errors"
	"github.com/easayliu/phone-task-orchestrator/pkg/logger"
)

// defaultAppPackages 常用应用名到包名的映射，可通过配置覆盖或补充
var defaultAppPackages = map[string]string{
	"微信":    "com.tencent.mm",
	"QQ":    "com.tencent.mobileqq",
	"支付宝":   "com.eg.android.AlipayGphone",
	"淘宝":    "com.taobao.taobao",
	"京东":    "com.jingdong.app.mall",
	"美团":    "com.sankuai.meituan",
	"抖音":    "com.ss.android.ugc.aweme",
	"微博":    "com.sina.weibo",
	"哔哩哔哩":  "tv.danmaku.bili",
	"网易云音乐": "com.netease.cloudmusic",
	"高德地图":  "com.autonavi.minimap",
	"设置":    "com.android.settings",
	"Chrome": "com.android.chrome",
}

// AdbDriver 通过adb命令驱动Android设备，
// 同时实现contracts.ActionDispatcher与contracts.DeviceController。
// 所有adb调用经过QPS限流，连续注入事件过快会被设备丢弃。
type AdbDriver struct {
	adbPath       string
	limiter       *ratelimit.RateLimiter
	screenshotDir string
	appPackages   map[string]string

	mu          sync.Mutex
	screenSizes map[string][2]int
}

func NewAdbDriver(cfg *config.DeviceConfig, dataDir string) *AdbDriver {
	adbPath := cfg.AdbPath
	if adbPath == "" {
		adbPath = "adb"
	}

	packages := make(map[string]string, len(defaultAppPackages))
	for name, pkg := range defaultAppPackages {
		packages[name] = pkg
	}
	for name, pkg := range cfg.AppPackages {
		packages[name] = pkg
	}

	screenshotDir := filepath.Join(dataDir, "screenshots")
	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		logger.Warn("failed to create screenshot directory", "dir", screenshotDir, "error", err)
	}

	return &AdbDriver{
		adbPath:       adbPath,
		limiter:       ratelimit.NewRateLimiter(cfg.QPS),
		screenshotDir: screenshotDir,
		appPackages:   packages,
		screenSizes:   make(map[string][2]int),
	}
}

// AppPackages 返回应用名到包名的映射（规则引擎用于校验Launch目标）
func (d *AdbDriver) AppPackages() map[string]string {
	return d.appPackages
}

// run 执行adb命令并返回合并输出
func (d *AdbDriver) run(ctx context.Context, args ...string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, d.adbPath, args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (d *AdbDriver) shell(ctx context.Context, deviceID string, args ...string) (string, error) {
	return d.run(ctx, append([]string{"-s", deviceID, "shell"}, args...)...)
}

// Execute 执行规则处理后的最终动作
func (d *AdbDriver) Execute(ctx context.Context, deviceID string, actionType string, params entities.ActionParams) error {
	switch actionType {
	case "Launch":
		return d.launch(ctx, deviceID, params)
	case "Tap":
		return d.tap(ctx, deviceID, params, 1)
	case "Double Tap":
		return d.tap(ctx, deviceID, params, 2)
	case "Long Press":
		return d.longPress(ctx, deviceID, params)
	case "Swipe":
		return d.swipe(ctx, deviceID, params)
	case "Type", "Type_Name":
		return d.typeText(ctx, deviceID, params)
	case "Back":
		return d.keyevent(ctx, deviceID, "4")
	case "Home":
		return d.keyevent(ctx, deviceID, "3")
	case "Wait":
		return d.wait(ctx, params)
	case "Take_over":
		message, _ := params["message"].(string)
		if message == "" {
			message = "manual intervention required"
		}
		return errors.NewServiceError(errors.ErrorCodeDeviceOperation, "take over requested: "+message)
	case "Note", "Call_API", "Interact":
		// 记录/总结类动作不产生设备输入
		return nil
	}
	return errors.NewServiceError(errors.ErrorCodeInvalidRequest, "unknown action type: "+actionType)
}

func (d *AdbDriver) launch(ctx context.Context, deviceID string, params entities.ActionParams) error {
	app, _ := params["app"].(string)
	if app == "" {
		return errors.NewServiceError(errors.ErrorCodeInvalidRequest, "launch requires app")
	}
	pkg, ok := d.appPackages[app]
	if !ok {
		// 带点号的名称按包名直接使用
		if !strings.Contains(app, ".") {
			return errors.NewServiceError(errors.ErrorCodeDeviceOperation, "app not mapped to package: "+app)
		}
		pkg = app
	}
	if _, err := d.shell(ctx, deviceID, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1"); err != nil {
		return err
	}
	// 等待应用启动动画
	sleepCtx(ctx, time.Second)
	return nil
}

func (d *AdbDriver) tap(ctx context.Context, deviceID string, params entities.ActionParams, times int) error {
	x, y, err := d.absCoord(ctx, deviceID, params["element"])
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := d.shell(ctx, deviceID, "input", "tap", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
			return err
		}
		if times > 1 {
			sleepCtx(ctx, 100*time.Millisecond)
		}
	}
	return nil
}

func (d *AdbDriver) longPress(ctx context.Context, deviceID string, params entities.ActionParams) error {
	x, y, err := d.absCoord(ctx, deviceID, params["element"])
	if err != nil {
		return err
	}
	xs, ys := strconv.Itoa(x), strconv.Itoa(y)
	_, err = d.shell(ctx, deviceID, "input", "swipe", xs, ys, xs, ys, "800")
	return err
}

func (d *AdbDriver) swipe(ctx context.Context, deviceID string, params entities.ActionParams) error {
	sx, sy, err := d.absCoord(ctx, deviceID, params["start"])
	if err != nil {
		return err
	}
	ex, ey, err := d.absCoord(ctx, deviceID, params["end"])
	if err != nil {
		return err
	}
	durationMs := 300
	if f, ok := params["duration"].(float64); ok && f > 0 {
		durationMs = int(f * 1000)
	}
	_, err = d.shell(ctx, deviceID, "input", "swipe",
		strconv.Itoa(sx), strconv.Itoa(sy), strconv.Itoa(ex), strconv.Itoa(ey), strconv.Itoa(durationMs))
	return err
}

var inputTextReplacer = strings.NewReplacer(
	" ", "%s",
	"&", `\&`,
	"<", `\<`,
	">", `\>`,
	"(", `\(`,
	")", `\)`,
	"'", `\'`,
	`"`, `\"`,
	";", `\;`,
	"|", `\|`,
)

var nonASCIIPattern = regexp.MustCompile(`[^\x00-\x7f]`)

func (d *AdbDriver) typeText(ctx context.Context, deviceID string, params entities.ActionParams) error {
	text, _ := params["text"].(string)

	if text != "" {
		// 非ASCII文本走ADB键盘广播通道，input text无法注入中文
		if nonASCIIPattern.MatchString(text) || params["_split_text"] == true {
			encoded := base64.StdEncoding.EncodeToString([]byte(text))
			if _, err := d.shell(ctx, deviceID, "am", "broadcast", "-a", "ADB_INPUT_B64", "--es", "msg", encoded); err != nil {
				return err
			}
		} else {
			if _, err := d.shell(ctx, deviceID, "input", "text", inputTextReplacer.Replace(text)); err != nil {
				return err
			}
		}
	}

	if params["press_enter"] == true {
		sleepCtx(ctx, 200*time.Millisecond)
		return d.keyevent(ctx, deviceID, "66")
	}
	return nil
}

func (d *AdbDriver) keyevent(ctx context.Context, deviceID string, code string) error {
	_, err := d.shell(ctx, deviceID, "input", "keyevent", code)
	return err
}

func (d *AdbDriver) wait(ctx context.Context, params entities.ActionParams) error {
	duration := time.Second
	if s, ok := params["duration"].(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "seconds")), 64); err == nil && f > 0 {
			duration = time.Duration(f * float64(time.Second))
		}
	}
	sleepCtx(ctx, duration)
	return nil
}

// IsLocked 检查设备是否处于锁屏状态
func (d *AdbDriver) IsLocked(ctx context.Context, deviceID string) (bool, error) {
	out, err := d.shell(ctx, deviceID, "dumpsys", "window")
	if err != nil {
		return false, errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation, "failed to query lock state", err)
	}
	markers := []string{
		"mDreamingLockscreen=true",
		"mShowingLockscreen=true",
		"isStatusBarKeyguard=true",
		"mKeyguardShowing=true",
	}
	for _, m := range markers {
		if strings.Contains(out, m) {
			return true, nil
		}
	}
	return false, nil
}

// Unlock 亮屏并解锁。先上滑，有PIN时再输入PIN确认
func (d *AdbDriver) Unlock(ctx context.Context, deviceID string, pin string) error {
	if err := d.keyevent(ctx, deviceID, "KEYCODE_WAKEUP"); err != nil {
		return err
	}
	sleepCtx(ctx, 500*time.Millisecond)

	width, height, err := d.ScreenSize(ctx, deviceID)
	if err != nil {
		return err
	}
	x := strconv.Itoa(width / 2)
	y1 := strconv.Itoa(int(float64(height) * 0.9))
	y2 := strconv.Itoa(int(float64(height) * 0.17))

	// 双滑动确保稳定
	for i := 0; i < 2; i++ {
		if _, err := d.shell(ctx, deviceID, "input", "swipe", x, y1, x, y2, "300"); err != nil {
			return err
		}
		sleepCtx(ctx, 200*time.Millisecond)
	}

	if pin != "" {
		if _, err := d.shell(ctx, deviceID, "input", "text", pin); err != nil {
			return err
		}
		sleepCtx(ctx, 300*time.Millisecond)
		if err := d.keyevent(ctx, deviceID, "66"); err != nil {
			return err
		}
		sleepCtx(ctx, 500*time.Millisecond)
	}

	locked, err := d.IsLocked(ctx, deviceID)
	if err != nil {
		return err
	}
	if locked {
		return errors.NewServiceError(errors.ErrorCodeDeviceOperation, "device still locked after unlock attempt: "+deviceID)
	}
	return nil
}

// Lock 熄屏锁定
func (d *AdbDriver) Lock(ctx context.Context, deviceID string) error {
	return d.keyevent(ctx, deviceID, "26")
}

var screenSizePattern = regexp.MustCompile(`(\d+)x(\d+)`)

// ScreenSize 返回屏幕宽高（像素），优先Override尺寸，结果按设备缓存
func (d *AdbDriver) ScreenSize(ctx context.Context, deviceID string) (int, int, error) {
	d.mu.Lock()
	if size, ok := d.screenSizes[deviceID]; ok {
		d.mu.Unlock()
		return size[0], size[1], nil
	}
	d.mu.Unlock()

	out, err := d.shell(ctx, deviceID, "wm", "size")
	if err != nil {
		return 0, 0, errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation, "failed to query screen size", err)
	}

	var physical, override string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Override") {
			override = line
		} else if strings.Contains(line, "Physical") {
			physical = line
		}
	}
	line := override
	if line == "" {
		line = physical
	}
	m := screenSizePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, errors.NewServiceError(errors.ErrorCodeDeviceOperation, "unexpected wm size output: "+strings.TrimSpace(out))
	}
	width, _ := strconv.Atoi(m[1])
	height, _ := strconv.Atoi(m[2])

	d.mu.Lock()
	d.screenSizes[deviceID] = [2]int{width, height}
	d.mu.Unlock()
	return width, height, nil
}

// Screenshot 截图并保存到本地，返回文件路径
func (d *AdbDriver) Screenshot(ctx context.Context, deviceID string, tag string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := exec.CommandContext(ctx, d.adbPath, "-s", deviceID, "exec-out", "screencap", "-p").Output()
	if err != nil {
		return "", errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation, "screencap failed", err)
	}

	name := fmt.Sprintf("%s_%s_%d.png", sanitizeFileName(deviceID), tag, time.Now().UnixMilli())
	path := filepath.Join(d.screenshotDir, name)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation, "failed to save screenshot", err)
	}
	return path, nil
}

// ListDevices 列出已连接且状态正常的设备ID
func (d *AdbDriver) ListDevices(ctx context.Context) ([]string, error) {
	out, err := d.run(ctx, "devices")
	if err != nil {
		return nil, errors.NewServiceErrorWithCause(errors.ErrorCodeDeviceOperation, "adb devices failed", err)
	}

	var devices []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			devices = append(devices, fields[0])
		}
	}
	return devices, nil
}

// absCoord 将归一化坐标（0-999）换算为像素坐标
func (d *AdbDriver) absCoord(ctx context.Context, deviceID string, v any) (int, int, error) {
	rx, ry, ok := relCoord(v)
	if !ok {
		return 0, 0, errors.NewServiceError(errors.ErrorCodeInvalidRequest, "missing or malformed coordinates")
	}
	width, height, err := d.ScreenSize(ctx, deviceID)
	if err != nil {
		return 0, 0, err
	}
	x := int(math.Round(rx / 999 * float64(width)))
	y := int(math.Round(ry / 999 * float64(height)))
	if x >= width {
		x = width - 1
	}
	if y >= height {
		y = height - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y, nil
}

func relCoord(v any) (float64, float64, bool) {
	switch val := v.(type) {
	case []float64:
		if len(val) >= 2 {
			return val[0], val[1], true
		}
	case []any:
		if len(val) >= 2 {
			x, okX := toCoordFloat(val[0])
			y, okY := toCoordFloat(val[1])
			if okX && okY {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

func toCoordFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', ' ':
			return '_'
		}
		return r
	}, s)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
