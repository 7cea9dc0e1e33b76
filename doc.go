// Package propwatch 提供对象属性级别的变更监听（watch/unwatch）功能。
//
// 核心特点：
//   - 对一个对象的某个自有属性注册观察者(Watcher)，每次赋值时按注册顺序同步调用
//   - 观察者可以只观察变更(旧值、新值)，也可以作为Mutator改写最终写入的值
//   - 监听时改写属性的访问器(getter/setter)，保留属性原有的读写语义
//   - 若属性原本就是带setter的访问器，原setter被包装为管线中第一个(mutate)观察者
//   - 同一属性多次Watch只追加观察者，始终只有一条管线
//   - 管线登记在Interceptor的显式注册表中，以(对象, 属性名)为键
//   - 可选：通过EventChan接收每次赋值完成后的ChangeEvent
//   - 可选：FileSource把YAML/JSON文件的顶层键映射到对象上，文件变更时触发观察者
//
// 注意：
//   - 不可配置(Configurable=false)、只读(Writable=false)、只有getter的属性不能监听
//   - 观察者回调返回错误时，剩余管线不再执行，值不写入，错误从Object.Set返回
//   - 观察者在回调中再次给同一属性赋值会递归进入管线，本包不做防护
//   - Unwatch传入nil会清空整条管线，包括包装原setter的那一项
//   - 访问器属性的实际存储由原setter决定：排在包装项之后的Mutator改写的值不会写入原setter，
//     读取与ChangeEvent.NewValue都以原getter为准
//
// 推荐使用方式：
//  1. 通过NewObject创建对象，并用Define/DataProperty定义属性
//  2. 调用Watch（或Interceptor.Watch）注册Func或Mutator
//  3. 通过Object.Set赋值，观察者被依次调用
//  4. 调用Unwatch移除单个观察者或清空管线
//
// 并发安全：
//   - Object、Interceptor的所有导出方法都可以并发调用
//   - 持有内部锁时不会调用任何用户代码(回调、getter、setter)
//   - 每次赋值开始时对管线做快照：通知过程中被移除的观察者在本轮仍会执行，
//     通知过程中新增的观察者从下一次赋值开始生效
package propwatch
