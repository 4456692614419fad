package rule

import "github.com/easayliu/phone-task-orchestrator/internal/domain/entities"

// DefaultActionTypes 内置动作类型目录，首次启动时写入存储
func DefaultActionTypes() []*entities.ActionType {
	return []*entities.ActionType{
		{
			Name:        "Launch",
			Description: "启动指定应用程序",
			Parameters: []entities.ActionParameter{
				{Name: "app", Type: "string", Required: true, Description: "应用名称，如'微信'、'Chrome'"},
			},
			Example:    `do(action="Launch", app="微信")`,
			AdbCommand: "adb shell am start -n <package>/<activity>",
			Rules: []*entities.Rule{
				{ID: "launch_001", Condition: "应用未安装", Action: "返回错误提示，不执行启动", Priority: 10, Enabled: true},
				{ID: "launch_002", Condition: "应用已在前台", Action: "跳过启动，直接返回成功", Priority: 5, Enabled: true},
				{ID: "launch_003", Condition: "应用名称未在映射表中", Action: "尝试模糊匹配或提示用户添加映射", Priority: 3, Enabled: true},
			},
		},
		{
			Name:        "Tap",
			Description: "点击屏幕指定坐标位置",
			Parameters: []entities.ActionParameter{
				{Name: "element", Type: "list[int]", Required: true, Description: "坐标 [x, y]，范围 0-1000"},
				{Name: "message", Type: "string", Required: false, Description: "敏感操作提示信息"},
			},
			Example:    `do(action="Tap", element=[500, 300])`,
			AdbCommand: "adb shell input tap <x> <y>",
			Rules: []*entities.Rule{
				{ID: "tap_001", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围 [0-1000]", Priority: 10, Enabled: true},
				{ID: "tap_002", Condition: "连续快速点击同一位置", Action: "合并为单次点击，防止误操作", Priority: 5, Enabled: true},
				{ID: "tap_003", Condition: "点击系统敏感区域（如删除按钮）", Action: "显示确认对话框", Priority: 8, Enabled: true},
			},
		},
		{
			Name:        "Type",
			Description: "在当前焦点输入文本",
			Parameters: []entities.ActionParameter{
				{Name: "text", Type: "string", Required: true, Description: "要输入的文本内容"},
				{Name: "press_enter", Type: "bool", Required: false, Description: "输入后是否按回车键"},
			},
			Example:    `do(action="Type", text="Hello World", press_enter=True)`,
			AdbCommand: "adb shell input text <text>",
			Rules: []*entities.Rule{
				{ID: "type_001", Condition: "文本包含中文字符", Action: "使用ADB广播方式输入，确保中文正确", Priority: 10, Enabled: true},
				{ID: "type_002", Condition: "输入框无焦点", Action: "先尝试点击输入框获取焦点", Priority: 8, Enabled: true},
				{ID: "type_003", Condition: "文本长度超过100字符", Action: "分段输入，每段50字符", Priority: 5, Enabled: true},
				{ID: "type_004", Condition: "输入前有旧内容", Action: "先清空输入框再输入新内容", Priority: 7, Enabled: true},
			},
		},
		{
			Name:        "Type_Name",
			Description: "输入用户名等特殊文本（与Type相同处理）",
			Parameters: []entities.ActionParameter{
				{Name: "text", Type: "string", Required: true, Description: "要输入的文本内容"},
			},
			Example:    `do(action="Type_Name", text="username")`,
			AdbCommand: "adb shell input text <text>",
			Rules: []*entities.Rule{
				{ID: "typename_001", Condition: "等同于Type动作", Action: "使用Type动作的所有规则", Priority: 10, Enabled: true},
			},
		},
		{
			Name:        "Swipe",
			Description: "从起点滑动到终点",
			Parameters: []entities.ActionParameter{
				{Name: "start", Type: "list[int]", Required: true, Description: "起点坐标 [x, y]，范围 0-1000"},
				{Name: "end", Type: "list[int]", Required: true, Description: "终点坐标 [x, y]，范围 0-1000"},
			},
			Example:    `do(action="Swipe", start=[500, 800], end=[500, 200])`,
			AdbCommand: "adb shell input swipe <x1> <y1> <x2> <y2>",
			Rules: []*entities.Rule{
				{ID: "swipe_001", Condition: "起点和终点相同", Action: "转换为Tap动作", Priority: 10, Enabled: true},
				{ID: "swipe_002", Condition: "滑动距离过短（<50像素）", Action: "增加滑动距离以确保触发", Priority: 5, Enabled: true},
				{ID: "swipe_003", Condition: "滑动方向为垂直", Action: "用于页面滚动场景", Priority: 3, Enabled: true},
			},
		},
		{
			Name:        "Back",
			Description: "按下返回键",
			Example:     `do(action="Back")`,
			AdbCommand:  "adb shell input keyevent KEYCODE_BACK",
			Rules: []*entities.Rule{
				{ID: "back_001", Condition: "当前在应用首页", Action: "可能退出应用，需确认", Priority: 5, Enabled: true},
				{ID: "back_002", Condition: "存在弹窗或对话框", Action: "优先关闭弹窗", Priority: 8, Enabled: true},
			},
		},
		{
			Name:        "Home",
			Description: "按下Home键回到桌面",
			Example:     `do(action="Home")`,
			AdbCommand:  "adb shell input keyevent KEYCODE_HOME",
			Rules: []*entities.Rule{
				{ID: "home_001", Condition: "任意场景", Action: "返回桌面，应用进入后台", Priority: 10, Enabled: true},
			},
		},
		{
			Name:        "Double Tap",
			Description: "双击屏幕指定位置",
			Parameters: []entities.ActionParameter{
				{Name: "element", Type: "list[int]", Required: true, Description: "坐标 [x, y]，范围 0-1000"},
			},
			Example:    `do(action="Double Tap", element=[500, 500])`,
			AdbCommand: "adb shell input tap <x> <y> && adb shell input tap <x> <y>",
			Rules: []*entities.Rule{
				{ID: "dtap_001", Condition: "两次点击间隔", Action: "间隔100ms，确保识别为双击", Priority: 10, Enabled: true},
				{ID: "dtap_002", Condition: "坐标超出范围", Action: "自动裁剪到有效范围", Priority: 8, Enabled: true},
			},
		},
		{
			Name:        "Long Press",
			Description: "长按屏幕指定位置",
			Parameters: []entities.ActionParameter{
				{Name: "element", Type: "list[int]", Required: true, Description: "坐标 [x, y]，范围 0-1000"},
			},
			Example:    `do(action="Long Press", element=[500, 500])`,
			AdbCommand: "adb shell input swipe <x> <y> <x> <y> 1000",
			Rules: []*entities.Rule{
				{ID: "lpress_001", Condition: "默认长按时长", Action: "持续1000ms（1秒）", Priority: 10, Enabled: true},
				{ID: "lpress_002", Condition: "长按菜单项", Action: "可能触发上下文菜单", Priority: 5, Enabled: true},
			},
		},
		{
			Name:        "Wait",
			Description: "等待指定时间",
			Parameters: []entities.ActionParameter{
				{Name: "duration", Type: "string", Required: false, Description: "等待时间，如 '2 seconds'"},
			},
			Example: `do(action="Wait", duration="2 seconds")`,
			Rules: []*entities.Rule{
				{ID: "wait_001", Condition: "未指定时长", Action: "默认等待1秒", Priority: 10, Enabled: true},
				{ID: "wait_002", Condition: "等待时间超过10秒", Action: "显示进度提示", Priority: 5, Enabled: true},
			},
		},
		{
			Name:        "Take_over",
			Description: "请求用户接管操作（如登录、验证码）",
			Parameters: []entities.ActionParameter{
				{Name: "message", Type: "string", Required: false, Description: "提示用户的消息"},
			},
			Example: `do(action="Take_over", message="请完成登录验证")`,
			Rules: []*entities.Rule{
				{ID: "takeover_001", Condition: "需要人工操作", Action: "暂停自动化，等待用户完成后继续", Priority: 10, Enabled: true},
				{ID: "takeover_002", Condition: "用户完成操作", Action: "用户点击'继续'按钮后恢复自动化", Priority: 8, Enabled: true},
			},
		},
	}
}
