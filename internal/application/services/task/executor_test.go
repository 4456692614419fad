package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easayliu/phone-task-orchestrator/internal/application/contracts"
	"github.com/easayliu/phone-task-orchestrator/internal/application/services/rule"
	"github.com/easayliu/phone-task-orchestrator/internal/domain/entities"
)

// fakeController 可编程的设备控制器
type fakeController struct {
	mu          sync.Mutex
	locked      map[string]bool
	unlockCalls []string
	lockCalls   []string
	failUnlock  map[string]bool
}

func newFakeController() *fakeController {
	return &fakeController{
		locked:     make(map[string]bool),
		failUnlock: make(map[string]bool),
	}
}

func (c *fakeController) IsLocked(ctx context.Context, deviceID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locked[deviceID], nil
}

func (c *fakeController) Unlock(ctx context.Context, deviceID string, pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failUnlock[deviceID] {
		return fmt.Errorf("unlock rejected")
	}
	c.unlockCalls = append(c.unlockCalls, deviceID)
	c.locked[deviceID] = false
	return nil
}

func (c *fakeController) Lock(ctx context.Context, deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockCalls = append(c.lockCalls, deviceID)
	c.locked[deviceID] = true
	return nil
}

func (c *fakeController) ScreenSize(ctx context.Context, deviceID string) (int, int, error) {
	return 1080, 1920, nil
}

func (c *fakeController) Screenshot(ctx context.Context, deviceID string, tag string) (string, error) {
	return "/tmp/" + deviceID + "_" + tag + ".png", nil
}

func (c *fakeController) ListDevices(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.locked))
	for id := range c.locked {
		out = append(out, id)
	}
	return out, nil
}

type dispatchCall struct {
	DeviceID   string
	ActionType string
	Params     entities.ActionParams
}

// fakeDispatcher 记录分发并支持阻塞与按设备注入故障
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []dispatchCall
	failOn  map[string]bool
	panicOn map[string]bool
	release chan struct{} // 非nil时Execute阻塞直到该通道关闭
}

func (d *fakeDispatcher) Execute(ctx context.Context, deviceID string, actionType string, params entities.ActionParams) error {
	d.mu.Lock()
	release := d.release
	fail := d.failOn[deviceID]
	panics := d.panicOn[deviceID]
	d.mu.Unlock()
	if release != nil {
		<-release
	}
	if panics {
		panic("dispatcher bug on " + deviceID)
	}
	if fail {
		return fmt.Errorf("dispatch failed on %s", deviceID)
	}
	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{DeviceID: deviceID, ActionType: actionType, Params: params})
	d.mu.Unlock()
	return nil
}

type emptyRuleSource struct{}

func (emptyRuleSource) RulesForAction(string) []*entities.Rule { return nil }

type testRuleSource map[string][]*entities.Rule

func (s testRuleSource) RulesForAction(actionType string) []*entities.Rule { return s[actionType] }

func newTestExecutor(controller *fakeController, dispatcher *fakeDispatcher, source rule.RuleSource, pins map[string]string) (*ExecutorService, chan contracts.ExecutionEvent) {
	if source == nil {
		source = emptyRuleSource{}
	}
	interceptor := rule.NewInterceptor(rule.NewRegistry(), source)
	exec := NewExecutorService(
		dispatcher,
		controller,
		NewScriptPlannerFactory(),
		interceptor,
		NewLockGuard(controller, pins),
		ExecutorOptions{MaxSteps: 20, HistoryLimit: 10},
	)
	finished := make(chan contracts.ExecutionEvent, 10)
	exec.AddListener(func(e contracts.ExecutionEvent) {
		if e.Kind == contracts.EventFinished {
			finished <- e
		}
	})
	return exec, finished
}

func waitFinished(t *testing.T, ch chan contracts.ExecutionEvent) *entities.TaskExecution {
	t.Helper()
	select {
	case e := <-ch:
		return e.Execution
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for finished event")
		return nil
	}
}

const simpleScript = `do(action="Tap", element=[500, 300])
finish(message="done")`

func TestSubmitRunsScript(t *testing.T) {
	controller := newFakeController()
	dispatcher := &fakeDispatcher{}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	resp, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	result := waitFinished(t, finished)
	if result.ID != resp.ExecutionID {
		t.Errorf("finished event carries wrong execution")
	}
	if result.Status != entities.ExecutionCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.Progress != 100 {
		t.Errorf("expected progress 100, got %d", result.Progress)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0].ActionType != "Tap" {
		t.Errorf("expected one Tap dispatch, got %+v", dispatcher.calls)
	}
	if len(result.Results) != 1 || !result.Results[0].Success {
		t.Errorf("expected successful device result, got %+v", result.Results)
	}
}

func TestSubmitConflictAndDeferral(t *testing.T) {
	controller := newFakeController()
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{release: release}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginChat,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 定时来源：静默让路
	_, err = exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginScheduled,
	})
	if !stderrors.Is(err, contracts.ErrDeferred) {
		t.Errorf("expected ErrDeferred for scheduled, got %v", err)
	}

	// 非force：结构化冲突
	_, err = exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	var conflict *contracts.PreemptionConflict
	if !stderrors.As(err, &conflict) {
		t.Fatalf("expected PreemptionConflict, got %v", err)
	}
	if conflict.RunningOrigin != entities.OriginChat || conflict.RequestedOrigin != entities.OriginManual {
		t.Errorf("conflict details wrong: %+v", conflict)
	}

	// force但优先级不更高：仍拒绝
	_, err = exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginChat,
		Force:       true,
	})
	if !stderrors.As(err, &conflict) {
		t.Errorf("equal priority force must be rejected, got %v", err)
	}

	close(release)
	waitFinished(t, finished)
}

func TestForcePreemptionByHigherPriority(t *testing.T) {
	controller := newFakeController()
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{release: release}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	first, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginChat,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	type submitResult struct {
		resp *contracts.SubmitResponse
		err  error
	}
	resultCh := make(chan submitResult, 1)
	go func() {
		resp, err := exec.Submit(context.Background(), contracts.SubmitRequest{
			TaskContent: simpleScript,
			DeviceIDs:   []string{"D1"},
			Origin:      entities.OriginManual,
			Force:       true,
		})
		resultCh <- submitResult{resp, err}
	}()

	// 解除阻塞，让被抢占的任务观察到停止标志
	time.Sleep(50 * time.Millisecond)
	close(release)

	firstResult := waitFinished(t, finished)
	if firstResult.ID != first.ExecutionID {
		t.Fatalf("first finished event should be the preempted execution")
	}
	if firstResult.Status != entities.ExecutionStopped {
		t.Errorf("preempted execution should be stopped, got %s", firstResult.Status)
	}

	res := <-resultCh
	if res.err != nil {
		t.Fatalf("preempting submit failed: %v", res.err)
	}
	second := waitFinished(t, finished)
	if second.ID != res.resp.ExecutionID {
		t.Errorf("second finished event mismatch")
	}
	if second.Status != entities.ExecutionCompleted {
		t.Errorf("preempting execution should complete, got %s", second.Status)
	}
}

func TestLockStateRestored(t *testing.T) {
	controller := newFakeController()
	controller.locked["D1"] = true
	dispatcher := &fakeDispatcher{}
	exec, finished := newTestExecutor(controller, dispatcher, nil, map[string]string{"D1": "1234"})

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	result := waitFinished(t, finished)

	if result.Status != entities.ExecutionCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if !controller.locked["D1"] {
		t.Error("device was locked before execution and must be re-locked after")
	}
	if len(controller.unlockCalls) != 1 || len(controller.lockCalls) != 1 {
		t.Errorf("expected one unlock and one lock, got %v / %v", controller.unlockCalls, controller.lockCalls)
	}
}

func TestUnlockedDeviceNotTouched(t *testing.T) {
	controller := newFakeController()
	dispatcher := &fakeDispatcher{}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitFinished(t, finished)

	if len(controller.unlockCalls) != 0 || len(controller.lockCalls) != 0 {
		t.Errorf("unlocked device must not be locked or unlocked, got %v / %v",
			controller.unlockCalls, controller.lockCalls)
	}
}

func TestPartialFailureIsolated(t *testing.T) {
	// D1解锁失败 → 仅D1失败；D2照常执行且状态不受影响
	controller := newFakeController()
	controller.locked["D1"] = true
	controller.failUnlock["D1"] = true
	dispatcher := &fakeDispatcher{}
	exec, finished := newTestExecutor(controller, dispatcher, nil, map[string]string{"D1": "1234"})

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1", "D2"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	result := waitFinished(t, finished)

	if result.Status != entities.ExecutionCompleted {
		t.Errorf("partial failure should still complete overall, got %s", result.Status)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 device results, got %d", len(result.Results))
	}
	if result.Results[0].Success || result.Results[0].DeviceID != "D1" {
		t.Errorf("D1 should have failed: %+v", result.Results[0])
	}
	if !result.Results[1].Success || result.Results[1].DeviceID != "D2" {
		t.Errorf("D2 should have succeeded: %+v", result.Results[1])
	}
	for _, call := range dispatcher.calls {
		if call.DeviceID == "D1" {
			t.Error("no action should be dispatched to failed device D1")
		}
	}
}

func TestDispatcherPanicIsolatedToDevice(t *testing.T) {
	// D1的分发器panic → 仅D1失败，D2照常执行，槽位正常释放
	controller := newFakeController()
	dispatcher := &fakeDispatcher{panicOn: map[string]bool{"D1": true}}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1", "D2"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	result := waitFinished(t, finished)

	if result.Status != entities.ExecutionCompleted {
		t.Errorf("panic on one device should not fail the run, got %s", result.Status)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 device results, got %d", len(result.Results))
	}
	if result.Results[0].Success || !strings.Contains(result.Results[0].Message, "panic") {
		t.Errorf("D1 should be recorded as a panic failure: %+v", result.Results[0])
	}
	if !result.Results[1].Success {
		t.Errorf("D2 should have succeeded: %+v", result.Results[1])
	}
	if exec.Current() != nil {
		t.Error("slot must be released after a device panic")
	}

	// 槽位可复用
	_, err = exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D2"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit after panic: %v", err)
	}
	waitFinished(t, finished)
}

func TestQueriesReturnSnapshots(t *testing.T) {
	controller := newFakeController()
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{release: release}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	resp, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1", "D2", "D3"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// run协程持续写入执行记录，查询必须返回独立副本
	a, b := exec.Current(), exec.Current()
	if a == nil || b == nil {
		t.Fatal("execution should be running")
	}
	if a == b {
		t.Error("Current must not hand out the live execution pointer")
	}
	a.Status = entities.ExecutionFailed
	a.Results = append(a.Results, entities.TaskResult{DeviceID: "bogus"})
	if c := exec.Current(); c.Status == entities.ExecutionFailed || len(c.Results) != len(b.Results) {
		t.Error("mutating a returned copy must not affect the execution")
	}

	// 并发读取与run协程的写入不冲突
	done := make(chan struct{})
	go func() {
		defer close(done)
		for exec.Current() != nil {
			exec.History(10)
			if _, err := exec.Get(resp.ExecutionID); err != nil {
				return
			}
		}
	}()

	close(release)
	result := waitFinished(t, finished)
	<-done

	if result.Status != entities.ExecutionCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	got, err := exec.Get(resp.ExecutionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == result {
		t.Error("Get must return an independent copy")
	}
	if len(got.Results) != 3 {
		t.Errorf("expected 3 device results, got %d", len(got.Results))
	}
}

func TestStopCurrent(t *testing.T) {
	controller := newFakeController()
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{release: release}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	if err := exec.StopCurrent(context.Background()); !stderrors.Is(err, contracts.ErrNoRunningTask) {
		t.Errorf("expected ErrNoRunningTask, got %v", err)
	}

	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: simpleScript,
		DeviceIDs:   []string{"D1", "D2"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := exec.StopCurrent(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	close(release)

	result := waitFinished(t, finished)
	if result.Status != entities.ExecutionStopped {
		t.Errorf("expected stopped, got %s", result.Status)
	}
	if exec.Current() != nil {
		t.Error("slot must be released after stop")
	}
}

func TestRuleAbortFailsDevice(t *testing.T) {
	controller := newFakeController()
	dispatcher := &fakeDispatcher{}
	source := testRuleSource{
		"Tap": {
			{ID: "tap_oob", Condition: "坐标超出屏幕范围", Action: "返回错误提示", Priority: 10, Enabled: true},
		},
	}
	exec, finished := newTestExecutor(controller, dispatcher, source, nil)

	script := `do(action="Tap", element=[1200, -50])
finish(message="done")`
	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: script,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	result := waitFinished(t, finished)

	if result.Status != entities.ExecutionFailed {
		t.Errorf("rule abort on only device should fail execution, got %s", result.Status)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("aborted action must not be dispatched, got %+v", dispatcher.calls)
	}
}

func TestRuleModifiedParamsDispatched(t *testing.T) {
	controller := newFakeController()
	dispatcher := &fakeDispatcher{}
	source := testRuleSource{
		"Tap": {
			{ID: "tap_clip", Condition: "坐标超出屏幕范围", Action: "自动裁剪到有效范围", Priority: 10, Enabled: true},
		},
	}
	exec, finished := newTestExecutor(controller, dispatcher, source, nil)

	script := `do(action="Tap", element=[1200, -50])
finish(message="done")`
	_, err := exec.Submit(context.Background(), contracts.SubmitRequest{
		TaskContent: script,
		DeviceIDs:   []string{"D1"},
		Origin:      entities.OriginManual,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	result := waitFinished(t, finished)

	if result.Status != entities.ExecutionCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.calls))
	}
	element, ok := dispatcher.calls[0].Params["element"].([]float64)
	if !ok || element[0] != 1000 || element[1] != 0 {
		t.Errorf("expected clipped element [1000, 0], got %v", dispatcher.calls[0].Params["element"])
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	controller := newFakeController()
	dispatcher := &fakeDispatcher{}
	exec, finished := newTestExecutor(controller, dispatcher, nil, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		resp, err := exec.Submit(context.Background(), contracts.SubmitRequest{
			TaskContent: simpleScript,
			DeviceIDs:   []string{"D1"},
			Origin:      entities.OriginManual,
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, resp.ExecutionID)
		waitFinished(t, finished)
	}

	history := exec.History(2)
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ID != ids[2] || history[1].ID != ids[1] {
		t.Error("history must be newest first")
	}

	if _, err := exec.Get(ids[0]); err != nil {
		t.Errorf("oldest execution should still be retrievable: %v", err)
	}
}
