package propwatch

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Change 是传给观察者回调的变更事件
//
// Target：被赋值的对象
// Property：属性名
// OldValue：本次赋值前的值
// NewValue：当前累积的候选新值（前面的Mutator可能已经改写过）
// Scope：该观察者注册时绑定的接收者
type Change struct {
	Target   *Object
	Property string
	OldValue any
	NewValue any
	Scope    any
}

// Func 是观察者回调
//
// 对于Mutator，返回值替换候选新值；普通观察者的返回值被忽略。
// 返回非nil错误会中止本次赋值
type Func func(c Change) (any, error)

// Spec 是注册时的观察者描述，取值为 Func 或 Options
type Spec interface {
	options() Options
}

// Options 是带mutate标志的观察者描述
type Options struct {
	Callback Func
	Mutate   bool
}

func (f Func) options() Options { return Options{Callback: f} }

func (o Options) options() Options { return o }

// Mutator 返回一个会改写写入值的观察者描述
func Mutator(fn Func) Spec {
	return Options{Callback: fn, Mutate: true}
}

// Watcher 表示管线中一个已注册的观察者，注册后不应再修改其字段
//
// Callback：回调函数
// Mutate：为true时回调返回值替换候选新值
// Scope：回调的接收者，未指定时为目标对象
// Original：为true表示这是包装属性原setter的隐式观察者
type Watcher struct {
	Callback Func
	Mutate   bool
	Scope    any
	Original bool
}

// ChangeEvent 表示一次已完成的赋值，通过 Interceptor.EventChan 对外发送
type ChangeEvent struct {
	Target     *Object
	Property   string
	OldValue   any
	NewValue   any
	Watchers   int
	OccurredAt time.Time
}

// Config 用于配置 Interceptor
//
// Logger：结构化日志，默认丢弃所有输出
// MeterProvider：OpenTelemetry指标提供者，默认使用 otel.GetMeterProvider()
// EventBuffer：EventChan的缓冲大小，<=0 时不创建EventChan
type Config struct {
	Logger        *slog.Logger
	MeterProvider metric.MeterProvider
	EventBuffer   int
}

type propertyKey struct {
	target *Object
	name   string
}

// Interceptor 负责改写属性访问器并维护观察者管线
//
// mu：保护pipelines、closed以及EventChan的发送
// pipelines：(对象, 属性名) -> 管线 的注册表
// EventChan：向外部暴露的赋值完成事件通道（可能为nil），满时丢弃
type Interceptor struct {
	mu        sync.Mutex
	pipelines map[propertyKey]*pipeline
	closed    bool

	logger  *slog.Logger
	metrics *instruments
	dropped atomic.Uint64

	EventChan chan ChangeEvent
}

// NewInterceptor 根据配置创建 Interceptor
func NewInterceptor(cfg Config) (*Interceptor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	inst, err := newInstruments(cfg.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	in := &Interceptor{
		pipelines: make(map[propertyKey]*pipeline),
		logger:    logger,
		metrics:   inst,
	}
	if cfg.EventBuffer > 0 {
		in.EventChan = make(chan ChangeEvent, cfg.EventBuffer)
	}
	return in, nil
}

// Watch 为 target 的 name 属性注册一个观察者
//
// 属性必须是自有、可配置的；数据属性必须可写，访问器属性必须有setter。
// scope 为nil时使用 target。成功时返回注册记录，其 Scope 为实际使用的接收者，
// 该记录也用于之后的 Unwatch
func (in *Interceptor) Watch(target *Object, name string, spec Spec, scope any) (*Watcher, error) {
	if target == nil {
		return nil, fmt.Errorf("watch %q: %w", name, ErrNilTarget)
	}
	if spec == nil {
		return nil, fmt.Errorf("watch %q: %w", name, ErrNilCallback)
	}
	opts := spec.options()
	if opts.Callback == nil {
		return nil, fmt.Errorf("watch %q: %w", name, ErrNilCallback)
	}
	if scope == nil {
		scope = target
	}

	watcher := &Watcher{Callback: opts.Callback, Mutate: opts.Mutate, Scope: scope}
	key := propertyKey{target: target, name: name}
	added := 1
	created := false

	err := target.update(name, func(desc Descriptor) (Descriptor, error) {
		if err := checkWatchable(desc); err != nil {
			return desc, err
		}

		in.mu.Lock()
		defer in.mu.Unlock()
		p := in.instrumentedLocked(key, desc)
		if p == nil {
			p = newPipeline(in, target, name, desc)
			in.pipelines[key] = p
			added += len(p.watchers)
			created = true
		}
		p.add(watcher)

		getter := desc.Get
		if !desc.IsAccessor() {
			getter = p
		}
		return Descriptor{
			Get:          getter,
			Set:          p,
			Enumerable:   desc.Enumerable,
			Configurable: true,
		}, nil
	})
	if err != nil {
		in.logger.Debug("watch rejected", "property", name, "error", err)
		return nil, fmt.Errorf("watch %q: %w", name, err)
	}

	in.metrics.watchersChanged(name, int64(added))
	if created {
		in.logger.Debug("property instrumented", "property", name)
	}
	in.logger.Debug("watcher added", "property", name, "mutate", watcher.Mutate)
	return watcher, nil
}

// Unwatch 移除观察者
//
// watcher 为nil时清空整条管线；否则移除第一个相同的注册记录。
// 属性未被监听、管线为空或找不到该记录时返回false
func (in *Interceptor) Unwatch(target *Object, name string, watcher *Watcher) bool {
	p := in.lookup(target, name)
	if p == nil {
		return false
	}
	removed := p.remove(watcher)
	if removed == 0 {
		return false
	}
	in.metrics.watchersChanged(name, -int64(removed))
	in.logger.Debug("watchers removed", "property", name, "count", removed)
	return true
}

// Watchers 按管线顺序返回已注册的观察者，属性未被监听时返回空切片
//
// 返回的切片是副本，但其中的记录与管线共享
func (in *Interceptor) Watchers(target *Object, name string) []*Watcher {
	p := in.lookup(target, name)
	if p == nil {
		return []*Watcher{}
	}
	return p.list()
}

// Mutators 按管线顺序返回 Mutate 为true的观察者回调
func (in *Interceptor) Mutators(target *Object, name string) []Func {
	mutators := []Func{}
	for _, watcher := range in.Watchers(target, name) {
		if watcher.Mutate {
			mutators = append(mutators, watcher.Callback)
		}
	}
	return mutators
}

// DroppedEvents 返回因EventChan已满而丢弃的事件数
func (in *Interceptor) DroppedEvents() uint64 {
	return in.dropped.Load()
}

// Close 关闭 EventChan，之后的赋值不再发送事件；已安装的管线继续工作
func (in *Interceptor) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	if in.EventChan != nil {
		close(in.EventChan)
	}
}

// lookup 查找属性当前生效的管线
//
// 属性被删除或被其他代码重新定义后，注册表中的旧管线会在这里被清理
func (in *Interceptor) lookup(target *Object, name string) *pipeline {
	if target == nil {
		return nil
	}
	desc, ok := target.OwnDescriptor(name)

	in.mu.Lock()
	defer in.mu.Unlock()
	key := propertyKey{target: target, name: name}
	if !ok {
		in.forgetLocked(key)
		return nil
	}
	return in.instrumentedLocked(key, desc)
}

// instrumentedLocked 判断 desc 是否由本 Interceptor 的管线接管
func (in *Interceptor) instrumentedLocked(key propertyKey, desc Descriptor) *pipeline {
	registered, ok := in.pipelines[key]
	if !ok {
		return nil
	}
	current, isPipeline := desc.Set.(*pipeline)
	if !isPipeline || current != registered {
		in.forgetLocked(key)
		return nil
	}
	return registered
}

func (in *Interceptor) forgetLocked(key propertyKey) {
	p, ok := in.pipelines[key]
	if !ok {
		return
	}
	delete(in.pipelines, key)
	if n := p.list(); len(n) > 0 {
		in.metrics.watchersChanged(key.name, -int64(len(n)))
	}
	in.logger.Debug("stale pipeline dropped", "property", key.name)
}

// assigned 在一次赋值完成后记录指标并发送事件
func (in *Interceptor) assigned(p *pipeline, oldVal, newVal any, watchers int) {
	in.metrics.assigned(p.property)
	in.logger.Debug("property assigned", "property", p.property, "watchers", watchers)

	if in.EventChan == nil {
		return
	}
	ev := ChangeEvent{
		Target:     p.target,
		Property:   p.property,
		OldValue:   oldVal,
		NewValue:   newVal,
		Watchers:   watchers,
		OccurredAt: time.Now().UTC(),
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	select {
	case in.EventChan <- ev:
	default:
		in.dropped.Add(1)
		in.metrics.eventDropped(p.property)
	}
}

func checkWatchable(desc Descriptor) error {
	switch {
	case !desc.Configurable:
		return ErrNotConfigurable
	case desc.IsAccessor() && desc.Set == nil:
		return ErrGetterOnly
	case !desc.IsAccessor() && !desc.Writable:
		return ErrReadOnly
	}
	return nil
}
