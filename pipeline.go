package propwatch

import "sync"

// pipeline 是一个被监听属性的观察者管线，同时充当该属性安装后的setter
//
// getter：属性原本的getter（仅访问器属性，可能为nil）
// accessor：属性原本是否为访问器属性
// watchers：按注册顺序排列的观察者
// val：捕获值，数据属性的实际存储位置
type pipeline struct {
	interceptor *Interceptor
	target      *Object
	property    string
	getter      Getter
	accessor    bool

	mu       sync.Mutex
	watchers []*Watcher
	val      any
}

func newPipeline(in *Interceptor, target *Object, property string, desc Descriptor) *pipeline {
	p := &pipeline{
		interceptor: in,
		target:      target,
		property:    property,
		accessor:    desc.IsAccessor(),
	}
	if !p.accessor {
		p.val = desc.Value
		return p
	}

	p.getter = desc.Get
	if setter := desc.Set; setter != nil {
		// 原setter作为第一个mutate观察者，值原样向后传递
		p.watchers = append(p.watchers, &Watcher{
			Callback: func(c Change) (any, error) {
				if err := setter.Set(c.NewValue); err != nil {
					return nil, err
				}
				return c.NewValue, nil
			},
			Mutate:   true,
			Scope:    target,
			Original: true,
		})
	}
	return p
}

// Get 返回捕获值，数据属性被监听后安装为其getter
func (p *pipeline) Get() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.val
}

// Set 依次执行管线并写入最终值
func (p *pipeline) Set(value any) error {
	p.mu.Lock()
	watchers := make([]*Watcher, len(p.watchers))
	copy(watchers, p.watchers)
	oldVal := p.val
	p.mu.Unlock()

	if p.getter != nil {
		oldVal = p.getter.Get()
	}

	candidate := value
	for index, watcher := range watchers {
		out, err := watcher.Callback(Change{
			Target:   p.target,
			Property: p.property,
			OldValue: oldVal,
			NewValue: candidate,
			Scope:    watcher.Scope,
		})
		p.interceptor.metrics.watcherCalled(p.property, err)
		if err != nil {
			return &WatcherError{Property: p.property, Index: index, Err: err}
		}
		if watcher.Mutate {
			candidate = out
		}
	}

	p.mu.Lock()
	p.val = candidate
	p.mu.Unlock()

	// 访问器的存储由原setter决定，事件报告读取时实际得到的值
	stored := candidate
	if p.getter != nil {
		stored = p.getter.Get()
	}
	p.interceptor.assigned(p, oldVal, stored, len(watchers))
	return nil
}

func (p *pipeline) add(watcher *Watcher) {
	p.mu.Lock()
	p.watchers = append(p.watchers, watcher)
	p.mu.Unlock()
}

// remove 移除第一个与watcher相同的记录；watcher为nil时清空管线
// 返回被移除的数量
func (p *pipeline) remove(watcher *Watcher) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.watchers) == 0 {
		return 0
	}
	if watcher == nil {
		n := len(p.watchers)
		p.watchers = nil
		return n
	}
	for i, candidate := range p.watchers {
		if candidate == watcher {
			p.watchers = append(p.watchers[:i], p.watchers[i+1:]...)
			return 1
		}
	}
	return 0
}

func (p *pipeline) list() []*Watcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Watcher, len(p.watchers))
	copy(out, p.watchers)
	return out
}
