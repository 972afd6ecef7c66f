package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/backend"
)

// fakeDriver считает вызовы примитивов; по желанию падает,
// паникует или блокируется.
type fakeDriver struct {
	mu      sync.Mutex
	clicks  int
	moves   int
	scrolls int
	taps    int
	toggles int
	typed   strings.Builder

	failClick  error
	panicClick bool

	// Закрытие канала разблокирует зависшие Click
	blockClick chan struct{}

	// Вызывается на каждый Click до инкремента счётчика
	onClick func()
}

func (f *fakeDriver) Name() string        { return "fake" }
func (f *fakeDriver) Available() bool     { return true }
func (f *fakeDriver) Position() (int, int) { return 100, 100 }

func (f *fakeDriver) MoveTo(x, y int) error {
	f.mu.Lock()
	f.moves++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) Click(b backend.Button) error {
	if f.onClick != nil {
		f.onClick()
	}
	if f.blockClick != nil {
		<-f.blockClick
	}
	if f.panicClick {
		panic("driver exploded")
	}
	if f.failClick != nil {
		return f.failClick
	}
	f.mu.Lock()
	f.clicks++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) Toggle(b backend.Button, down bool) error {
	f.mu.Lock()
	f.toggles++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) Scroll(d backend.ScrollDirection) error {
	f.mu.Lock()
	f.scrolls++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) KeyTap(key string, mods []string) error {
	f.mu.Lock()
	f.taps++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) KeyToggle(key string, down bool) error {
	f.mu.Lock()
	f.toggles++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) TypeStr(text string) error {
	f.mu.Lock()
	f.typed.WriteString(text)
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clicks
}

func newTestExecutor(t *testing.T, cfg Config, d backend.Driver) *Executor {
	t.Helper()
	v := action.NewValidator(action.DefaultPolicy())
	e := New(cfg, v, d, zap.NewNop(), nil)
	e.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

func clickAction() action.Action {
	a := action.New(action.TypePointer, action.PointerClick)
	a.Pointer = &action.PointerParams{X: action.IntPtr(10), Y: action.IntPtr(20)}
	return a
}

func TestSyncClickSucceeds(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{}, d)

	res := e.ExecuteMode(context.Background(), clickAction(), false).Wait()
	if !res.Success {
		t.Fatalf("click failed: %s", res.Message)
	}
	if res.ErrorCode != CodeNone {
		t.Errorf("unexpected error code: %q", res.ErrorCode)
	}
	if d.clickCount() != 1 {
		t.Errorf("clicks = %d, want 1", d.clickCount())
	}
	if e.HistoryLen() != 1 {
		t.Errorf("history size = %d, want 1", e.HistoryLen())
	}
}

func TestValidationFailureSkipsDriverAndHistory(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{}, d)

	// f4 в deny-list дефолтной политики
	a := action.New(action.TypeKeyboard, action.KeyboardKeyPress)
	a.Keyboard = &action.KeyboardParams{Keys: []string{"f4"}}

	res := e.ExecuteMode(context.Background(), a, false).Wait()
	if res.Success {
		t.Fatal("dangerous key press must be rejected")
	}
	if res.ErrorCode != CodeValidation {
		t.Errorf("error code = %q, want %q", res.ErrorCode, CodeValidation)
	}
	// Отказ валидации не доходит ни до драйвера, ни до журнала
	if d.taps != 0 {
		t.Errorf("driver touched on validation failure: taps = %d", d.taps)
	}
	if e.HistoryLen() != 0 {
		t.Errorf("history size = %d, want 0", e.HistoryLen())
	}
}

func TestEmergencyStopRejectsUntilResume(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{}, d)

	e.EmergencyStopAll()
	if !e.EmergencyStopped() {
		t.Fatal("interlock must be engaged")
	}

	res := e.ExecuteMode(context.Background(), clickAction(), false).Wait()
	if res.Success || res.ErrorCode != CodeEmergencyStop {
		t.Fatalf("got %+v, want EMERGENCY_STOP rejection", res)
	}
	if d.clickCount() != 0 {
		t.Errorf("driver touched while stopped: clicks = %d", d.clickCount())
	}

	e.ResumeExecution()
	res = e.ExecuteMode(context.Background(), clickAction(), false).Wait()
	if !res.Success {
		t.Fatalf("click after resume failed: %s", res.Message)
	}
}

func TestDriverErrorBecomesExecutionError(t *testing.T) {
	d := &fakeDriver{failClick: context.DeadlineExceeded}
	e := newTestExecutor(t, Config{}, d)

	res := e.ExecuteMode(context.Background(), clickAction(), false).Wait()
	if res.Success {
		t.Fatal("driver error must fail the action")
	}
	if res.ErrorCode != CodeExecution {
		t.Errorf("error code = %q, want %q", res.ErrorCode, CodeExecution)
	}
	if !strings.HasPrefix(res.Message, "execution error: ") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestDriverPanicIsIsolated(t *testing.T) {
	d := &fakeDriver{panicClick: true}
	e := newTestExecutor(t, Config{}, d)

	res := e.ExecuteMode(context.Background(), clickAction(), false).Wait()
	if res.Success || res.ErrorCode != CodeExecution {
		t.Fatalf("got %+v, want EXECUTION_ERROR from panic", res)
	}

	// Воркер пережил панику и продолжает обслуживать очередь
	d.panicClick = false
	res = e.ExecuteMode(context.Background(), clickAction(), true).Wait()
	if !res.Success {
		t.Fatalf("executor did not survive the panic: %s", res.Message)
	}
}

func TestHooksFireExactlyOnce(t *testing.T) {
	d := &fakeDriver{}
	v := action.NewValidator(action.DefaultPolicy())
	e := New(Config{}, v, d, zap.NewNop(), nil)

	var executed, failed atomic.Int64
	e.SetHooks(
		func(action.Action, Result) { executed.Add(1) },
		func(action.Action, Result) { failed.Add(1) },
	)
	e.Start()
	defer e.Shutdown(context.Background())

	e.ExecuteMode(context.Background(), clickAction(), false).Wait()

	bad := action.New(action.TypeApplication, action.ApplicationFocus)
	bad.Application = &action.ApplicationParams{Path: "/bin/true"}
	e.ExecuteMode(context.Background(), bad, false).Wait()

	if executed.Load() != 1 {
		t.Errorf("executed hook fired %d times, want 1", executed.Load())
	}
	if failed.Load() != 1 {
		t.Errorf("failed hook fired %d times, want 1", failed.Load())
	}
}

func TestAsyncRunCompletesAllActions(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{Workers: 2, QueueSize: 100}, d)

	const n = 50
	pendings := make([]*Pending, 0, n)
	for i := 0; i < n; i++ {
		pendings = append(pendings, e.ExecuteMode(context.Background(), clickAction(), true))
	}

	for i, p := range pendings {
		if res := p.Wait(); !res.Success {
			t.Fatalf("action %d failed: %s", i, res.Message)
		}
	}
	if d.clickCount() != n {
		t.Errorf("clicks = %d, want %d", d.clickCount(), n)
	}
	if e.HistoryLen() != n {
		t.Errorf("history size = %d, want %d", e.HistoryLen(), n)
	}
}

func TestQueueFullRejectsWithoutBlocking(t *testing.T) {
	block := make(chan struct{})
	d := &fakeDriver{blockClick: block}
	e := newTestExecutor(t, Config{Workers: 1, QueueSize: 1}, d)

	// Первое действие занимает воркер, второе — единственный слот очереди
	p1 := e.ExecuteMode(context.Background(), clickAction(), true)
	var p2 *Pending
	deadline := time.Now().Add(2 * time.Second)
	for {
		p2 = e.ExecuteMode(context.Background(), clickAction(), true)
		if _, ok := p2.TryResult(); !ok {
			break // Задача встала в очередь
		}
		if time.Now().After(deadline) {
			t.Fatal("second action never queued")
		}
	}

	// Третье обязано отказать сразу, без блокировки вызывающего
	p3 := e.ExecuteMode(context.Background(), clickAction(), true)
	res, ok := p3.TryResult()
	if !ok {
		t.Fatal("overflow submission must resolve immediately")
	}
	if res.Success || res.Message != "execution queue is full" {
		t.Fatalf("got %+v, want queue-full rejection", res)
	}
	if res.ErrorCode != CodeNone {
		t.Errorf("queue-full rejection must carry no error code, got %q", res.ErrorCode)
	}

	close(block)
	p1.Wait()
	p2.Wait()
}

func TestShutdownDrainsQueue(t *testing.T) {
	d := &fakeDriver{}
	v := action.NewValidator(action.DefaultPolicy())
	e := New(Config{Workers: 1, QueueSize: 20}, v, d, zap.NewNop(), nil)
	e.Start()

	const n = 10
	pendings := make([]*Pending, 0, n)
	for i := 0; i < n; i++ {
		pendings = append(pendings, e.ExecuteMode(context.Background(), clickAction(), true))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// Всё, что успело встать в очередь, дорабатывает до конца
	for i, p := range pendings {
		if res, ok := p.TryResult(); !ok {
			t.Fatalf("action %d unresolved after shutdown", i)
		} else if !res.Success {
			t.Fatalf("action %d failed: %s", i, res.Message)
		}
	}

	// Повторный Shutdown безопасен, вход заперт
	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	res, ok := e.ExecuteMode(context.Background(), clickAction(), true).TryResult()
	if !ok || res.Success {
		t.Fatal("submission after shutdown must be rejected immediately")
	}
}

func TestCancelledContextFailsBeforeDriver(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{GraceDelay: 10 * time.Millisecond}, d)

	// Мёртвый контекст: пейсинг-лимитер обязан вернуть ошибку,
	// не пропуская действие до драйвера
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.ExecuteMode(ctx, clickAction(), false).Wait()
	if res.Success {
		t.Fatal("cancelled context must fail the action")
	}
	if res.ErrorCode != CodeExecution {
		t.Errorf("error code = %q, want %q", res.ErrorCode, CodeExecution)
	}
	if d.clickCount() != 0 {
		t.Errorf("driver touched with dead context: clicks = %d", d.clickCount())
	}
}

func TestTypeTextSkipsTrailingDelay(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{KeyInterval: time.Hour}, d)

	// Один символ: межсимвольных пауз нет вообще, действие обязано
	// уложиться в таймаут, не пересиживая часовой интервал
	a := action.New(action.TypeKeyboard, action.KeyboardTypeText)
	a.Keyboard = &action.KeyboardParams{Text: "a"}
	a.Timeout = 0.2

	res := e.ExecuteMode(context.Background(), a, false).Wait()
	if !res.Success {
		t.Fatalf("single-character type failed: %s", res.Message)
	}
	if res.Message != "text typed: 1 characters" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	d.mu.Lock()
	typed := d.typed.String()
	d.mu.Unlock()
	if typed != "a" {
		t.Errorf("typed = %q, want %q", typed, "a")
	}
}

func TestTimeoutCancelsLongAction(t *testing.T) {
	d := &fakeDriver{}
	e := newTestExecutor(t, Config{}, d)

	// 500 символов × 50ms интервала — заведомо дольше таймаута
	a := action.New(action.TypeKeyboard, action.KeyboardTypeText)
	a.Keyboard = &action.KeyboardParams{Text: strings.Repeat("a", 500)}
	a.Timeout = 0.05

	res := e.ExecuteMode(context.Background(), a, false).Wait()
	if res.Success {
		t.Fatal("action must be cancelled by its timeout")
	}
	if res.ErrorCode != CodeExecution {
		t.Errorf("error code = %q, want %q", res.ErrorCode, CodeExecution)
	}
}
