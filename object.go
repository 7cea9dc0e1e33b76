package propwatch

import (
	"fmt"
	"sync"
)

// Getter 读取访问器属性的值
type Getter interface {
	Get() any
}

// Setter 写入访问器属性的值
type Setter interface {
	Set(value any) error
}

// GetterFunc 把普通函数适配为Getter
type GetterFunc func() any

func (f GetterFunc) Get() any { return f() }

// SetterFunc 把普通函数适配为Setter
type SetterFunc func(value any) error

func (f SetterFunc) Set(value any) error { return f(value) }

// Descriptor 描述对象上的一个属性槽
//
// Value：数据属性的值（Get、Set均为nil时才有意义）
// Get / Set：访问器属性的读写实现，任意一个非nil即为访问器属性
// Writable：数据属性是否可写
// Enumerable：是否出现在Keys()/Snapshot()中
// Configurable：是否允许重新定义、删除或监听
type Descriptor struct {
	Value        any
	Get          Getter
	Set          Setter
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor 判断是否为访问器属性
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// DataProperty 返回可写、可枚举、可配置的数据属性描述
func DataProperty(value any) Descriptor {
	return Descriptor{Value: value, Writable: true, Enumerable: true, Configurable: true}
}

// AccessorProperty 返回可枚举、可配置的访问器属性描述
//
// get、set 可以传 nil，但不要传入包着 nil 函数的 GetterFunc/SetterFunc
func AccessorProperty(get Getter, set Setter) Descriptor {
	return Descriptor{Get: get, Set: set, Enumerable: true, Configurable: true}
}

// Object 是一个普通对象：有序的自有属性集合
//
// mu：保护slots与order
// slots：属性名 -> 描述
// order：属性定义顺序，重新定义不改变位置
type Object struct {
	mu    sync.RWMutex
	slots map[string]Descriptor
	order []string
}

// NewObject 创建一个空对象
func NewObject() *Object {
	return &Object{slots: make(map[string]Descriptor)}
}

// Define 定义或重新定义一个自有属性
//
// 已存在且不可配置的属性返回 ErrNotConfigurable
func (o *Object) Define(name string, desc Descriptor) error {
	if desc.IsAccessor() && (desc.Value != nil || desc.Writable) {
		return fmt.Errorf("define %q: %w", name, ErrInvalidDescriptor)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.slots == nil {
		o.slots = make(map[string]Descriptor)
	}
	existing, ok := o.slots[name]
	if ok && !existing.Configurable {
		return fmt.Errorf("define %q: %w", name, ErrNotConfigurable)
	}
	if !ok {
		o.order = append(o.order, name)
	}
	o.slots[name] = desc
	return nil
}

// OwnDescriptor 返回自有属性的描述副本
func (o *Object) OwnDescriptor(name string) (Descriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	desc, ok := o.slots[name]
	return desc, ok
}

// Has 判断是否存在该自有属性
func (o *Object) Has(name string) bool {
	_, ok := o.OwnDescriptor(name)
	return ok
}

// Get 读取属性值
//
// 不存在的属性、或没有getter的访问器属性返回 nil
func (o *Object) Get(name string) any {
	desc, ok := o.OwnDescriptor(name)
	if !ok {
		return nil
	}
	if !desc.IsAccessor() {
		return desc.Value
	}
	if desc.Get == nil {
		return nil
	}
	return desc.Get.Get()
}

// Set 给属性赋值
//
// 不存在的属性会被定义为新的数据属性；
// 访问器属性调用其setter（在锁外调用），setter的错误原样返回
func (o *Object) Set(name string, value any) error {
	o.mu.Lock()
	if o.slots == nil {
		o.slots = make(map[string]Descriptor)
	}
	desc, ok := o.slots[name]
	if !ok {
		o.order = append(o.order, name)
		o.slots[name] = DataProperty(value)
		o.mu.Unlock()
		return nil
	}
	if !desc.IsAccessor() {
		if !desc.Writable {
			o.mu.Unlock()
			return fmt.Errorf("set %q: %w", name, ErrReadOnly)
		}
		desc.Value = value
		o.slots[name] = desc
		o.mu.Unlock()
		return nil
	}
	setter := desc.Set
	o.mu.Unlock()

	if setter == nil {
		return fmt.Errorf("set %q: %w", name, ErrGetterOnly)
	}
	return setter.Set(value)
}

// Delete 删除自有属性，不存在时什么也不做
func (o *Object) Delete(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	desc, ok := o.slots[name]
	if !ok {
		return nil
	}
	if !desc.Configurable {
		return fmt.Errorf("delete %q: %w", name, ErrNotConfigurable)
	}
	delete(o.slots, name)
	for i, key := range o.order {
		if key == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys 按定义顺序返回可枚举的自有属性名
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.order))
	for _, key := range o.order {
		if o.slots[key].Enumerable {
			keys = append(keys, key)
		}
	}
	return keys
}

// Snapshot 读取所有可枚举属性的当前值
func (o *Object) Snapshot() map[string]any {
	keys := o.Keys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = o.Get(key)
	}
	return out
}

// update 在写锁内读取并替换一个已存在的属性描述
//
// fn 不能调用用户代码，也不能回调 Object 的方法
func (o *Object) update(name string, fn func(Descriptor) (Descriptor, error)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	desc, ok := o.slots[name]
	if !ok {
		return ErrPropertyNotFound
	}
	next, err := fn(desc)
	if err != nil {
		return err
	}
	o.slots[name] = next
	return nil
}
