package propwatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNilTarget 目标对象为nil
	ErrNilTarget = errors.New("target object is nil")
	// ErrNilCallback 监听规格中没有回调函数
	ErrNilCallback = errors.New("watcher callback is nil")
	// ErrPropertyNotFound 目标对象上不存在该自有属性
	ErrPropertyNotFound = errors.New("property not found")
	// ErrNotConfigurable 属性不可配置，无法重新定义、删除或安装管线
	ErrNotConfigurable = errors.New("property is not configurable")
	// ErrReadOnly 向只读数据属性赋值
	ErrReadOnly = errors.New("property is read-only")
	// ErrGetterOnly 向只有getter的访问器属性赋值
	ErrGetterOnly = errors.New("accessor property has no setter")
	// ErrInvalidDescriptor 属性描述同时包含值字段与访问器字段
	ErrInvalidDescriptor = errors.New("descriptor mixes value and accessor fields")
)

// WatcherError 表示管线中某个观察者回调返回的错误
//
// Property：被赋值的属性名
// Index：出错观察者在本次快照中的位置(从0开始)
// Err：回调返回的原始错误
type WatcherError struct {
	Property string
	Index    int
	Err      error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("watcher %d on %q: %v", e.Index, e.Property, e.Err)
}

func (e *WatcherError) Unwrap() error {
	return e.Err
}
